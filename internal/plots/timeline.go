package plots

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/camctl/internal/tracedb"
)

// echartsAssetsPrefix serves the echarts scripts from the public CDN.
const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// Timeline renders a session trace as an HTML page: requested and applied
// exposure, requested and applied gain, and the resulting mean luminance.
func Timeline(w io.Writer, title string, frames []tracedb.Frame) error {
	if len(frames) == 0 {
		return fmt.Errorf("empty trace")
	}

	x := make([]uint32, len(frames))
	reqExp := make([]opts.LineData, len(frames))
	appExp := make([]opts.LineData, len(frames))
	reqGain := make([]opts.LineData, len(frames))
	appGain := make([]opts.LineData, len(frames))
	luma := make([]opts.LineData, len(frames))
	for i, f := range frames {
		x[i] = f.Frame
		reqExp[i] = opts.LineData{Value: f.RequestedExposure}
		appExp[i] = opts.LineData{Value: f.AppliedExposure}
		reqGain[i] = opts.LineData{Value: f.RequestedGain}
		appGain[i] = opts.LineData{Value: f.AppliedGain}
		luma[i] = opts.LineData{Value: f.MeanLuma}
	}

	subtitle := fmt.Sprintf("session=%s frames=%d", frames[0].SessionID, len(frames))
	step := charts.WithLineChartOpts(opts.LineChart{Step: "end", ShowSymbol: opts.Bool(false)})

	exposure := charts.NewLine()
	exposure.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "360px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Exposure (lines)", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frame", NameLocation: "middle", NameGap: 25}),
	)
	exposure.SetXAxis(x).
		AddSeries("requested", reqExp, step).
		AddSeries("applied", appExp, step)

	gain := charts.NewLine()
	gain.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "360px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Analogue gain"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frame", NameLocation: "middle", NameGap: 25}),
	)
	gain.SetXAxis(x).
		AddSeries("requested", reqGain, step).
		AddSeries("applied", appGain, step)

	brightness := charts.NewLine()
	brightness.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "360px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Mean luminance"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frame", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1}),
	)
	brightness.SetXAxis(x).
		AddSeries("luma", luma, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))

	page := components.NewPage()
	page.SetPageTitle(title)
	page.SetAssetsHost(echartsAssetsPrefix)
	page.AddCharts(exposure, gain, brightness)
	return page.Render(w)
}
