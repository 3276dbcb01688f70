package web

import (
	"strings"
	"testing"
)

func TestNiceCeil(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 1},
		{-5, 1},
		{1, 1},
		{3, 5},
		{7.5, 10},
		{46.5, 50},
		{120, 200},
		{999, 1000},
	}
	for _, tt := range tests {
		if got := niceCeil(tt.in); got != tt.want {
			t.Errorf("niceCeil(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRenderBarChart(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		values []float64
		want   []string
	}{
		{"two months", []string{"Feb 2024", "Mar 2024"}, []float64{40, 66.5}, []string{"Feb", "Mar", ">100<"}},
		{"all zero", []string{"01 Mar"}, []float64{0}, []string{"Mar", ">1<"}},
		{"missing and negative values", []string{"a", "b"}, []float64{-3}, []string{"<svg"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := renderBarChart("Total Sales", tt.labels, tt.values, colorTotal)
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			if c.Empty || !strings.Contains(string(c.SVG), "<svg") {
				t.Fatalf("expected an svg document, got %q", c.SVG)
			}
			for _, want := range tt.want {
				if !strings.Contains(string(c.SVG), want) {
					t.Errorf("svg missing %q", want)
				}
			}
		})
	}
}

func TestRenderBarChartEmptyAndThinnedLabels(t *testing.T) {
	c, err := renderBarChart("Quantity", nil, nil, colorQuantity)
	if err != nil || !c.Empty || c.SVG != "" {
		t.Fatalf("chart without labels should be empty: %+v, %v", c, err)
	}

	labels := make([]string, 30)
	values := make([]float64, 30)
	for i := range labels {
		labels[i] = "d" + trimFloat(float64(i+10), 0)
		values[i] = 1
	}
	c, err = renderBarChart("Quantity", labels, values, colorQuantity)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	drawn := 0
	for _, l := range labels {
		if strings.Contains(string(c.SVG), ">"+l+"<") {
			drawn++
		}
	}
	if drawn == 0 || drawn > maxLabels {
		t.Fatalf("%d labels drawn, want 1..%d", drawn, maxLabels)
	}
}

func TestBarWidthFitsPlot(t *testing.T) {
	if got := barWidth(2); got != maxBarWidth {
		t.Errorf("barWidth(2) = %d, want %d", got, maxBarWidth)
	}
	if got := barWidth(31); got*31 > chartWidth {
		t.Errorf("31 bars of width %d overflow %d", got, chartWidth)
	}
	if got := barWidth(500); got != minBarWidth {
		t.Errorf("barWidth(500) = %d, want %d", got, minBarWidth)
	}
}
