package app

import "github.com/atotto/clipboard"

// Clipboard is the text clipboard used for binding import and export.
type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

type systemClipboard struct{}

func (systemClipboard) ReadAll() (string, error) { return clipboard.ReadAll() }

func (systemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }
