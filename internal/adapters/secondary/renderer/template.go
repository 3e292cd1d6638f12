package renderer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/fredcamaral/slidekiosk/internal/domain/ports"
)

// ClientRenderer renders the browser remote client page and serves its assets
type ClientRenderer struct {
	templates *template.Template
}

// NewClientRenderer creates a new template-based client renderer
func NewClientRenderer() (*ClientRenderer, error) {
	tmpl := template.New("index").Funcs(template.FuncMap{
		"title": LayoutLabel,
	})

	if _, err := tmpl.Parse(indexTemplate); err != nil {
		return nil, fmt.Errorf("parsing index template: %w", err)
	}

	return &ClientRenderer{templates: tmpl}, nil
}

// RenderIndex writes the client page
func (r *ClientRenderer) RenderIndex(ctx context.Context, w io.Writer, data ports.ClientPageData) error {
	if data.Title == "" {
		data.Title = "Slide Kiosk"
	}

	// render to a buffer so a template error never leaves a half-written page
	var buf bytes.Buffer
	if err := r.templates.Execute(&buf, data); err != nil {
		return fmt.Errorf("executing index template: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Stylesheet returns /static/style.css
func (r *ClientRenderer) Stylesheet() []byte {
	return []byte(stylesheet)
}

// Script returns /static/script.js
func (r *ClientRenderer) Script() []byte {
	return []byte(script)
}

// LayoutLabel turns a layout name into a display label
func LayoutLabel(layout string) string {
	return cases.Title(language.Und).String(layout)
}

var _ ports.PageRenderer = (*ClientRenderer)(nil)

const indexTemplate = `<!DOCTYPE html>
<html lang="de">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}} - Remote</title>
    <link rel="stylesheet" href="/static/style.css">
</head>
<body>
    <div class="refresh-indicator" id="refreshIndicator">Aktualisiert</div>

    <div class="presentation-container" data-total-slides="{{.TotalSlides}}" data-current-slide="{{.CurrentSlide}}">
        <div class="header">
            <div class="logo">{{.Title}}</div>
            <div class="controls">
                <button class="btn" id="refreshBtn">Aktualisieren</button>
                <button class="btn btn-primary" id="playBtn">&#9654; Demo</button>
            </div>
        </div>

        <div class="slide-container" id="slideContent">
            <div class="loading">Lädt Präsentation...</div>
        </div>

        <div class="navigation">
            <div class="slide-info" id="slideInfo">Folie {{.CurrentSlide}} von {{.TotalSlides}}</div>
            {{- if .Layouts}}
            <div class="layouts">
                {{- range .Layouts}}
                <span class="layout-tag">{{title .}}</span>
                {{- end}}
            </div>
            {{- end}}
            <div class="nav-buttons">
                <button class="btn" id="prevBtn">&#9664; Zurück</button>
                <button class="btn" id="nextBtn">Weiter &#9654;</button>
            </div>
        </div>
    </div>

    <script src="/static/script.js"></script>
</body>
</html>
`

const stylesheet = `* {
    margin: 0;
    padding: 0;
    box-sizing: border-box;
}

body {
    font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif;
    background: linear-gradient(135deg, #1e3c72 0%, #2a5298 100%);
    color: white;
    overflow-x: hidden;
    touch-action: manipulation;
}

.presentation-container {
    max-width: 100vw;
    margin: 0 auto;
    padding: 10px;
    min-height: 100vh;
    display: flex;
    flex-direction: column;
}

.header, .navigation {
    background: rgba(255, 255, 255, 0.1);
    border-radius: 12px;
    padding: 15px;
    display: flex;
    justify-content: space-between;
    align-items: center;
    flex-wrap: wrap;
}

.header { margin-bottom: 15px; }
.navigation { margin-top: 10px; }

.logo { font-size: 18px; font-weight: bold; }

.controls, .nav-buttons, .layouts { display: flex; gap: 10px; flex-wrap: wrap; }

.btn {
    padding: 10px 15px;
    border: none;
    border-radius: 8px;
    background: rgba(255, 255, 255, 0.2);
    color: white;
    cursor: pointer;
    font-size: 14px;
    min-width: 60px;
}

.btn:disabled { opacity: 0.4; cursor: default; }
.btn-primary { background: #FF6600; }

.layout-tag {
    font-size: 12px;
    padding: 2px 8px;
    border-radius: 10px;
    background: rgba(255, 255, 255, 0.15);
}

.slide-container {
    flex: 1;
    background: white;
    border-radius: 12px;
    overflow: hidden;
    box-shadow: 0 8px 32px rgba(0, 0, 0, 0.2);
    min-height: 400px;
}

.slide-content { padding: 30px; display: flex; flex-direction: column; height: 100%; }

.slide-title {
    font-size: 28px;
    color: #1E88E5;
    margin-bottom: 20px;
    text-align: center;
    border-bottom: 3px solid #FF6600;
    padding-bottom: 10px;
}

.slide-text { font-size: 16px; line-height: 1.6; color: #1F1F1F; flex: 1; }

.slide-images { display: flex; flex-wrap: wrap; gap: 15px; margin-top: 20px; }

.slide-image {
    max-width: 200px;
    max-height: 150px;
    border-radius: 8px;
    box-shadow: 0 4px 8px rgba(0, 0, 0, 0.1);
}

.loading, .error { text-align: center; padding: 50px; font-size: 18px; }
.loading { color: #888; }
.error { color: #ff6b6b; }

.refresh-indicator {
    position: fixed;
    top: 10px;
    right: 10px;
    background: rgba(0, 160, 0, 0.8);
    padding: 5px 10px;
    border-radius: 15px;
    font-size: 12px;
    opacity: 0;
    transition: opacity 0.3s ease;
}

.refresh-indicator.active { opacity: 1; }

@media (max-width: 768px) {
    .slide-content { padding: 20px; }
    .slide-title { font-size: 24px; }
    .controls, .nav-buttons { flex-direction: column; width: 100%; }
    .btn { width: 100%; }
}
`

const script = `(function () {
    'use strict';

    const POLL_INTERVAL = 3000;

    const state = {
        currentSlide: 1,
        totalSlides: 1,
        socket: null,
        pollTimer: null
    };

    const $ = (id) => document.getElementById(id);

    async function loadCurrentSlide() {
        try {
            const response = await fetch('/api/current_slide');
            const data = await response.json();
            if (data.error) {
                showError(data.error);
                return;
            }
            state.currentSlide = data.slide_id;
            state.totalSlides = data.total_slides;
            renderSlide(data);
            updateNavigation();
            flashIndicator();
        } catch (err) {
            console.error('Error loading slide:', err);
            showError('Verbindungsfehler beim Laden der Folie');
        }
    }

    function renderSlide(data) {
        const container = $('slideContent');
        container.textContent = '';

        const content = document.createElement('div');
        content.className = 'slide-content';

        const title = document.createElement('h1');
        title.className = 'slide-title';
        title.textContent = data.title || 'Untitled';
        content.appendChild(title);

        const text = document.createElement('div');
        text.className = 'slide-text';
        // content_html is sanitized by the server
        text.innerHTML = data.content_html || '';
        content.appendChild(text);

        const images = (data.canvas_elements || []).filter((el) => el.type === 'image' && el.web_url);
        if (images.length > 0) {
            const gallery = document.createElement('div');
            gallery.className = 'slide-images';
            images.forEach((el) => {
                const img = document.createElement('img');
                img.className = 'slide-image';
                img.alt = el.original_name || 'Slide Image';
                img.src = el.web_url;
                gallery.appendChild(img);
            });
            content.appendChild(gallery);
        }

        container.appendChild(content);
    }

    function updateNavigation() {
        $('slideInfo').textContent = 'Folie ' + state.currentSlide + ' von ' + state.totalSlides;
        $('prevBtn').disabled = state.currentSlide <= 1;
        $('nextBtn').disabled = state.currentSlide >= state.totalSlides;
    }

    async function sendCommand(action, slide) {
        const body = { action: action };
        if (slide !== undefined) {
            body.slide = slide;
        }
        try {
            const response = await fetch('/api/control', {
                method: 'POST',
                headers: { 'Content-Type': 'application/json' },
                body: JSON.stringify(body)
            });
            const result = await response.json();
            if (result.status === 'success' && !state.socket) {
                setTimeout(loadCurrentSlide, 300);
            }
        } catch (err) {
            console.error('Error sending command:', err);
        }
    }

    function showError(message) {
        const container = $('slideContent');
        container.textContent = '';
        const div = document.createElement('div');
        div.className = 'error';
        div.textContent = message;
        container.appendChild(div);
    }

    function flashIndicator() {
        const indicator = $('refreshIndicator');
        indicator.classList.add('active');
        setTimeout(() => indicator.classList.remove('active'), 1000);
    }

    function startPolling() {
        if (!state.pollTimer) {
            state.pollTimer = setInterval(loadCurrentSlide, POLL_INTERVAL);
        }
    }

    function stopPolling() {
        if (state.pollTimer) {
            clearInterval(state.pollTimer);
            state.pollTimer = null;
        }
    }

    function connect() {
        if (!('WebSocket' in window)) {
            startPolling();
            return;
        }
        const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
        const socket = new WebSocket(scheme + location.host + '/ws');

        socket.onopen = () => {
            state.socket = socket;
            stopPolling();
        };
        socket.onmessage = (msg) => {
            let event;
            try {
                event = JSON.parse(msg.data);
            } catch (err) {
                return;
            }
            if (event.type === 'navigation' || event.type === 'content_updated') {
                loadCurrentSlide();
            }
        };
        socket.onclose = () => {
            state.socket = null;
            startPolling();
            setTimeout(connect, 5000);
        };
    }

    function setupInput() {
        $('prevBtn').addEventListener('click', () => sendCommand('prev'));
        $('nextBtn').addEventListener('click', () => sendCommand('next'));
        $('playBtn').addEventListener('click', () => sendCommand('play'));
        $('refreshBtn').addEventListener('click', loadCurrentSlide);

        document.addEventListener('keydown', (e) => {
            switch (e.key) {
            case 'ArrowLeft':
                sendCommand('prev');
                break;
            case 'ArrowRight':
            case ' ':
                sendCommand('next');
                break;
            case 'Home':
                sendCommand('goto', 1);
                break;
            case 'End':
                sendCommand('goto', state.totalSlides);
                break;
            }
        });

        let startX = null;
        const container = document.querySelector('.slide-container');
        container.addEventListener('touchstart', (e) => {
            startX = e.touches[0].clientX;
        });
        container.addEventListener('touchend', (e) => {
            if (startX === null) {
                return;
            }
            const deltaX = startX - e.changedTouches[0].clientX;
            if (Math.abs(deltaX) > 50) {
                sendCommand(deltaX > 0 ? 'next' : 'prev');
            }
            startX = null;
        });
    }

    document.addEventListener('DOMContentLoaded', () => {
        setupInput();
        loadCurrentSlide();
        connect();
    });
})();
`
