package analysis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cambra/puertos-china/internal/dataset"
)

func m(kilo, gs, flete, seguro float64) dataset.Measures {
	return dataset.Measures{NetKilos: kilo, ValueGs: gs, FreightUSD: flete, InsuranceUSD: seguro}
}

func sampleTables() *dataset.Tables {
	return &dataset.Tables{
		Series: []dataset.MonthlyRecord{
			{Year: 2021, Month: 2, Measures: m(200, 2000, 20, 2)},
			{Year: 2021, Month: 1, Measures: m(100, 1000, 10, 1)},
			{Year: 2022, Month: 1, Measures: m(300, 3000, 30, 3)},
			{Year: 2022, Month: 1, Measures: m(50, 500, 5, 0.5)},
			{Year: 2023, Month: 6, Measures: m(500, 5000, 50, 5)},
		},
		Ranking: []dataset.RankingRecord{
			{Merchandise: "Motos", Measures: m(2000, 30000, 300, 30)},
			{Merchandise: "Celulares", Measures: m(1000, 50000, 500, 50)},
			{Merchandise: "Neumaticos", Measures: m(1500, 20000, 200, 20)},
		},
		Ports: []dataset.PortRecord{
			{Port: "Asuncion", Merchandise: "Celulares", Measures: m(600, 30000, 300, 30)},
			{Port: "Asuncion", Merchandise: "Motos", Measures: m(1000, 10000, 100, 10)},
			{Port: "Ciudad del Este", Merchandise: "Celulares", Measures: m(400, 20000, 200, 20)},
			{Port: "Encarnacion", Merchandise: "Motos", Measures: m(1000, 20000, 200, 20)},
			{Port: "Encarnacion", Merchandise: "Neumaticos", Measures: m(1500, 20000, 200, 20)},
			{Port: "Encarnacion", Merchandise: "Neumaticos", Measures: m(0, 5000, 0, 0)},
		},
	}
}

func kpiValues(v View) []float64 {
	out := make([]float64, len(v.KPIs))
	for i, k := range v.KPIs {
		out[i] = k.Value
	}
	return out
}

func TestCompute_NoFilter(t *testing.T) {
	tables := sampleTables()
	d := New(tables)
	v := d.Compute(context.Background(), Filter{})

	// KPIs equal the independent sums of the ranking table
	var kilo, gs, flete, seguro float64
	for _, r := range tables.Ranking {
		kilo += r.NetKilos
		gs += r.ValueGs
		flete += r.FreightUSD
		seguro += r.InsuranceUSD
	}
	assert.Equal(t, []float64{kilo, gs, flete, seguro}, kpiValues(v))
	assert.Equal(t, "4,500", v.KPIs[0].Display)
	assert.Equal(t, "100,000", v.KPIs[1].Display)

	assert.Equal(t, 2021, v.Filter.FromYear)
	assert.Equal(t, 2023, v.Filter.ToYear)
	assert.Equal(t, TabNetKilos, v.Filter.Tab)

	require.Len(t, v.Ranking.Bars, 3)
	assert.Equal(t, []string{"Celulares", "Motos", "Neumaticos"},
		[]string{v.Ranking.Bars[0].Label, v.Ranking.Bars[1].Label, v.Ranking.Bars[2].Label})
	assert.Equal(t, RankingTitle, v.Ranking.Title)

	require.Len(t, v.Detail, 3)
	assert.Equal(t, "Celulares", v.Detail[0].Merchandise)
}

func TestCompute_SeriesAggregatesMonthsInOrder(t *testing.T) {
	d := New(sampleTables())
	v := d.Compute(context.Background(), Filter{Tab: TabValue})

	require.Len(t, v.Series.Points, 4)
	assert.Equal(t, time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC), v.Series.Points[0].Date)
	assert.Equal(t, time.Date(2021, time.February, 1, 0, 0, 0, 0, time.UTC), v.Series.Points[1].Date)
	assert.Equal(t, 3500.0, v.Series.Points[2].Value, "two rows of the same month are summed")
	assert.Equal(t, "Evolución de Valor (Gs)", v.Series.Title)
	assert.Equal(t, "total_gs", v.Series.Column)
}

func TestCompute_TreemapGroups(t *testing.T) {
	d := New(sampleTables())
	v := d.Compute(context.Background(), Filter{})

	want := []PortGroup{
		{Port: "Encarnacion", Value: 45000, Items: []Bar{{"Neumaticos", 25000}, {"Motos", 20000}}},
		{Port: "Asuncion", Value: 40000, Items: []Bar{{"Celulares", 30000}, {"Motos", 10000}}},
		{Port: "Ciudad del Este", Value: 20000, Items: []Bar{{"Celulares", 20000}}},
	}
	if diff := cmp.Diff(want, v.Treemap.Groups); diff != "" {
		t.Errorf("treemap groups mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, TreemapTitle, v.Treemap.Title)
}

func TestCompute_TreemapSkipsUnnamedRows(t *testing.T) {
	tables := sampleTables()
	tables.Ports = append(tables.Ports,
		dataset.PortRecord{Port: "", Merchandise: "Motos", Measures: m(1, 90000, 0, 0)},
		dataset.PortRecord{Port: "Pilar", Merchandise: "", Measures: m(1, 70000, 0, 0)},
	)
	v := New(tables).Compute(context.Background(), Filter{})

	require.Len(t, v.Treemap.Groups, 3)
	for _, g := range v.Treemap.Groups {
		assert.NotEmpty(t, g.Port)
		assert.NotEqual(t, "Pilar", g.Port)
	}
	assert.Equal(t, 45000.0, v.Treemap.Groups[0].Value)

	only := New(&dataset.Tables{Ports: []dataset.PortRecord{{Merchandise: "Motos", Measures: m(1, 10, 0, 0)}}}).
		Compute(context.Background(), Filter{})
	assert.Equal(t, NoDataTitle, only.Treemap.Title)
	assert.Empty(t, only.Treemap.Groups)
}

func TestCompute_YearRange(t *testing.T) {
	d := New(sampleTables())
	v := d.Compute(context.Background(), Filter{FromYear: 2022, ToYear: 2022, Tab: TabFreight})

	require.Len(t, v.Series.Points, 1)
	assert.Equal(t, 35.0, v.Series.Points[0].Value)

	// the year range leaves the ranking and KPIs untouched
	assert.Equal(t, 100000.0, v.KPIs[1].Value)
	assert.Len(t, v.Ranking.Bars, 3)
}

func TestCompute_ReversedYearRangeIsSwapped(t *testing.T) {
	d := New(sampleTables())
	v := d.Compute(context.Background(), Filter{FromYear: 2023, ToYear: 2022})
	assert.Equal(t, 2022, v.Filter.FromYear)
	assert.Equal(t, 2023, v.Filter.ToYear)
	assert.Len(t, v.Series.Points, 2)
}

func TestCompute_YearRangeWithoutRows(t *testing.T) {
	d := New(sampleTables())
	v := d.Compute(context.Background(), Filter{FromYear: 1990, ToYear: 1995})
	assert.NotNil(t, v.Series.Points)
	assert.Empty(t, v.Series.Points)
}

func TestCompute_MerchandiseFilter(t *testing.T) {
	d := New(sampleTables())
	v := d.Compute(context.Background(), Filter{Merchandise: []string{"Motos", "Neumaticos"}})

	assert.Equal(t, []float64{3500, 50000, 500, 50}, kpiValues(v))
	require.Len(t, v.Ranking.Bars, 2)
	assert.Equal(t, "Motos", v.Ranking.Bars[0].Label)

	require.Len(t, v.Treemap.Groups, 2)
	assert.Equal(t, "Encarnacion", v.Treemap.Groups[0].Port)
	assert.Equal(t, 45000.0, v.Treemap.Groups[0].Value)
	assert.Equal(t, []Bar{{Label: "Neumaticos", Value: 25000}, {Label: "Motos", Value: 20000}}, v.Treemap.Groups[0].Items)
	assert.Equal(t, "Asuncion", v.Treemap.Groups[1].Port)
}

func TestCompute_PortFilterDoesNotTouchKPIs(t *testing.T) {
	d := New(sampleTables())
	v := d.Compute(context.Background(), Filter{Ports: []string{"Ciudad del Este"}})

	assert.Equal(t, 100000.0, v.KPIs[1].Value)
	require.Len(t, v.Treemap.Groups, 1)
	assert.Equal(t, TreemapTitle, v.Treemap.Title)
	assert.Equal(t, []Bar{{Label: "Celulares", Value: 20000}}, v.Treemap.Groups[0].Items)
}

func TestCompute_PortFilterWithoutRows(t *testing.T) {
	d := New(sampleTables())
	v := d.Compute(context.Background(), Filter{
		Merchandise: []string{"Neumaticos"},
		Ports:       []string{"Ciudad del Este"},
	})

	assert.True(t, v.Treemap.Empty())
	assert.Equal(t, NoDataTitle, v.Treemap.Title)
	assert.NotNil(t, v.Treemap.Groups)
	assert.Equal(t, 20000.0, v.KPIs[1].Value)
}

func TestCompute_UnknownMerchandise(t *testing.T) {
	d := New(sampleTables())
	v := d.Compute(context.Background(), Filter{Merchandise: []string{"Arroz"}})

	assert.Equal(t, []float64{0, 0, 0, 0}, kpiValues(v))
	assert.Equal(t, "0", v.KPIs[0].Display)
	assert.Empty(t, v.Ranking.Bars)
	assert.NotNil(t, v.Detail)
	assert.Empty(t, v.Detail)
	assert.True(t, v.Treemap.Empty())
}

func TestCompute_Limits(t *testing.T) {
	tables := &dataset.Tables{}
	for i := 0; i < 60; i++ {
		tables.Ranking = append(tables.Ranking, dataset.RankingRecord{
			Merchandise: fmt.Sprintf("M%02d", i),
			Measures:    m(1, float64(i), 0, 0),
		})
	}

	v := New(tables).Compute(context.Background(), Filter{})
	require.Len(t, v.Ranking.Bars, DefaultRankingLimit)
	require.Len(t, v.Detail, DefaultDetailLimit)
	assert.Equal(t, "M59", v.Ranking.Bars[0].Label)
	assert.Equal(t, 60.0, v.KPIs[0].Value, "KPIs cover all rows, not only the top ones")

	v = New(tables, WithRankingLimit(5), WithDetailLimit(7)).Compute(context.Background(), Filter{})
	assert.Len(t, v.Ranking.Bars, 5)
	assert.Len(t, v.Detail, 7)
}

func TestCompute_EmptyTables(t *testing.T) {
	d := New(&dataset.Tables{})
	v := d.Compute(context.Background(), Filter{Tab: "otro"})
	assert.Empty(t, v.Series.Points)
	assert.Equal(t, TabInsurance, v.Filter.Tab)
	assert.True(t, v.Treemap.Empty())
}

func TestTab_Normalize(t *testing.T) {
	testCases := []struct {
		input    Tab
		expected Tab
		title    string
	}{
		{"", TabNetKilos, "Evolución de Volumen (Kg Neto)"},
		{"kilo", TabNetKilos, "Evolución de Volumen (Kg Neto)"},
		{"valor", TabValue, "Evolución de Valor (Gs)"},
		{"flete", TabFreight, "Evolución de Flete (USD)"},
		{"seguro", TabInsurance, "Evolución de Seguro (USD)"},
		{"desconocido", TabInsurance, "Evolución de Seguro (USD)"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, tc.input.Normalize(), "tab %q", tc.input)
		assert.Equal(t, tc.title, tc.input.Title(), "tab %q", tc.input)
	}
}

func TestOptions(t *testing.T) {
	opts := New(sampleTables()).Options()
	assert.Equal(t, []string{"Celulares", "Motos", "Neumaticos"}, opts.Merchandise)
	assert.Equal(t, []string{"Asuncion", "Ciudad del Este", "Encarnacion"}, opts.Ports)
	assert.Equal(t, 2021, opts.MinYear)
	assert.Equal(t, 2023, opts.MaxYear)
	assert.Equal(t, []int{2021, 2022, 2023}, opts.Years)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "0", FormatAmount(0))
	assert.Equal(t, "999", FormatAmount(999.4))
	assert.Equal(t, "1,235", FormatAmount(1234.6))
	assert.Equal(t, "12,345,678", FormatAmount(12345678))
}
