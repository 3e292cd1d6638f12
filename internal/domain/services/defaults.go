package services

import "github.com/fredcamaral/slidekiosk/internal/domain/entities"

type defaultSlide struct {
	id      int
	title   string
	content string
}

// defaultDeck is installed when no index exists yet
var defaultDeck = []defaultSlide{
	{1, "BumbleB - Das automatisierte Shuttle",
		"Schonmal ein automatisiert Shuttle gesehen, das aussieht wie eine Hummel?\n\nShuttle fährt los von Bushaltestelle an Bahnhof..."},
	{2, "BumbleB - Wie die Hummel fährt",
		"Wie die Hummel ihre Flügel nutzt, so nutzt unser BumbleB innovative Technologie für autonomes Fahren."},
	{3, "Einsatzgebiete und Vorteile",
		"Vielseitige Einsatzmöglichkeiten in urbanen Gebieten für nachhaltigen Transport."},
	{4, "Sicherheitssysteme",
		"Moderne Sicherheitssysteme gewährleisten maximale Sicherheit für alle Passagiere."},
	{5, "Nachhaltigkeit & Umwelt",
		"Nachhaltiger Transport für eine grüne Zukunft - umweltfreundlich und effizient."},
}

func defaultSlides(paths entities.Paths) map[int]*entities.Slide {
	slides := make(map[int]*entities.Slide, len(defaultDeck))
	for _, d := range defaultDeck {
		slides[d.id] = entities.NewSlide(paths, d.id, d.title, d.content, entities.LayoutText, nil, nil)
	}
	return slides
}
