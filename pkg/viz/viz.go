package viz

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
)

const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

type PlotOptions func(p *plot.Plot)

// LightTheme undoes the dark defaults for printing or light pages.
func LightTheme(p *plot.Plot) {
	p.BackgroundColor = color.White
	p.Title.TextStyle.Color = color.Black
	p.Y.Label.TextStyle.Color = color.Black
	p.Y.Color = color.Black
	p.X.Label.TextStyle.Color = color.Black
	p.X.Color = color.Black
	p.Legend.TextStyle.Color = color.Black
	p.X.Tick.Color = color.Black
	p.Y.Tick.Color = color.Black
	p.X.Tick.Label.Color = color.Black
	p.Y.Tick.Label.Color = color.Black
}

// ThemeOptions returns the plot options for a viz_server theme name.
func ThemeOptions(theme string) ([]PlotOptions, error) {
	switch theme {
	case "", ThemeDark:
		return nil, nil
	case ThemeLight:
		return []PlotOptions{LightTheme}, nil
	default:
		return nil, fmt.Errorf("unknown plot theme %q", theme)
	}
}

func plotWithDefaults() *plot.Plot {
	p := plot.New()
	p.BackgroundColor = color.Black
	p.Title.TextStyle.Color = color.White
	p.Y.Label.TextStyle.Color = color.White
	p.Y.Color = color.White
	p.X.Label.TextStyle.Color = color.White
	p.X.Color = color.White
	p.Legend.TextStyle.Color = color.White
	p.X.Tick.Color = color.White
	p.Y.Tick.Color = color.White
	p.X.Tick.Label.Color = color.White
	p.Y.Tick.Label.Color = color.White

	return p
}
