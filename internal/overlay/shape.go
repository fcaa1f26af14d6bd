package overlay

import (
	"github.com/go-text/typesetting/di"
	gotext "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"
)

// advance shapes one line with HarfBuzz and returns its advance width.
func (f *Font) advance(line string) fixed.Int26_6 {
	if line == "" {
		return 0
	}
	runes := []rune(line)
	var shaper shaping.HarfbuzzShaper
	out := shaper.Shape(shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: di.DirectionLTR,
		Face:      gotext.NewFace(f.src.shape),
		Size:      fixed.I(f.size),
		Script:    language.Latin,
		Language:  language.NewLanguage("en"),
	})
	return out.Advance
}
