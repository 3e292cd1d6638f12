package entities

import "errors"

var (
	// ErrSlideNotFound is returned when a slide ID is not in the store
	ErrSlideNotFound = errors.New("slide not found")

	// ErrSlideExists is returned when a target slide ID is already taken
	ErrSlideExists = errors.New("slide already exists")

	// ErrImageNotFound is returned when an image source file does not exist
	ErrImageNotFound = errors.New("image file not found")

	// ErrIndexNotFound is returned when the consolidated index file is absent
	ErrIndexNotFound = errors.New("slide index not found")
)
