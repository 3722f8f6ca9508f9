package dataset

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/goleak"
)

func fixturePaths() Paths {
	return Paths{
		Series:  filepath.Join("testdata", "serie.csv"),
		Ranking: filepath.Join("testdata", "ranking.csv"),
		Ports:   filepath.Join("testdata", "puertos.csv"),
	}
}

func TestLoad_CSV(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	tables, err := Load(context.Background(), fixturePaths())
	require.NoError(t, err)

	// the row with a non-numeric year is dropped
	require.Len(t, tables.Series, 5)
	assert.Equal(t, 0.0, tables.Series[3].NetKilos)
	assert.Equal(t, 4000.0, tables.Series[3].ValueGs)

	require.Len(t, tables.Ranking, 4)
	assert.Equal(t, "Celulares", tables.Ranking[0].Merchandise, "BOM must be stripped from the header")
	assert.Equal(t, 50000.0, tables.Ranking[0].ValueGs)

	require.Len(t, tables.Ports, 5)
	assert.Equal(t, "Ciudad del Este", tables.Ports[2].Port)
}

func TestLoad_MissingFileNamesTable(t *testing.T) {
	p := fixturePaths()
	p.Ports = filepath.Join("testdata", "no_existe.csv")

	_, err := Load(context.Background(), p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load ports")
}

func TestLoad_MissingColumn(t *testing.T) {
	p := fixturePaths()
	p.Ranking = filepath.Join("testdata", "sin_columnas.csv")

	_, err := Load(context.Background(), p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing column "kilo_neto"`)
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	_, err := loadRanking("ranking.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestLoad_Parquet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "china_ranking_mercaderias.parquet")
	rows := []parquetRanking{
		{Merchandise: "Celulares ", NetKilos: 10, ValueGs: 100, FreightUSD: 1, InsuranceUSD: 0.5},
		{Merchandise: "Motos", NetKilos: 20, ValueGs: 200, FreightUSD: 2, InsuranceUSD: 1},
	}
	require.NoError(t, parquet.WriteFile(path, rows))

	got, err := loadRanking(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Celulares", got[0].Merchandise)
	assert.Equal(t, 200.0, got[1].ValueGs)
	assert.Equal(t, 0.5, got[0].InsuranceUSD)
}

func TestLoad_ParquetSeries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "china_serie_mensual.parquet")
	rows := []parquetMonthly{
		{Year: 2020, Month: 12, NetKilos: 1, ValueGs: 2, FreightUSD: 3, InsuranceUSD: 4},
	}
	require.NoError(t, parquet.WriteFile(path, rows))

	got, err := loadSeries(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, time.Date(2020, time.December, 1, 0, 0, 0, 0, time.UTC), got[0].Date())
	assert.Equal(t, 4.0, got[0].InsuranceUSD)
}

// nullableMonthly mirrors the schema pandas writes through pyarrow: every
// column optional, the month stored as int32.
type nullableMonthly struct {
	Year         *int64   `parquet:"anio,optional"`
	Month        *int32   `parquet:"mes,optional"`
	NetKilos     *float64 `parquet:"kilo_neto,optional"`
	ValueGs      *float64 `parquet:"total_gs,optional"`
	FreightUSD   *float64 `parquet:"flete_usd,optional"`
	InsuranceUSD *float64 `parquet:"seguro_usd,optional"`
}

func ptr[T any](v T) *T { return &v }

func TestLoad_ParquetNullableSeries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "china_serie_mensual.parquet")
	rows := []nullableMonthly{
		{Year: ptr(int64(2021)), Month: ptr(int32(3)), ValueGs: ptr(1500.0), FreightUSD: ptr(12.5), InsuranceUSD: ptr(1.0)},
		{Year: ptr(int64(2021)), Month: ptr(int32(0)), NetKilos: ptr(9.0)},
		{Year: ptr(int64(2022)), Month: ptr(int32(13)), NetKilos: ptr(9.0)},
		{Month: ptr(int32(5)), NetKilos: ptr(9.0)},
		{Year: ptr(int64(2022)), Month: ptr(int32(7)), NetKilos: ptr(40.0), ValueGs: ptr(400.0)},
	}
	require.NoError(t, parquet.WriteFile(path, rows))

	got, err := loadSeries(path)
	require.NoError(t, err)
	// months outside 1..12 and the row without a year are dropped
	require.Len(t, got, 2)
	assert.Equal(t, MonthlyRecord{Year: 2021, Month: 3, Measures: Measures{ValueGs: 1500, FreightUSD: 12.5, InsuranceUSD: 1}}, got[0])
	assert.Equal(t, MonthlyRecord{Year: 2022, Month: 7, Measures: Measures{NetKilos: 40, ValueGs: 400}}, got[1])
}

func TestLoad_ParquetNullableRanking(t *testing.T) {
	type nullableRanking struct {
		Merchandise  *string  `parquet:"mercaderia,optional"`
		NetKilos     *float64 `parquet:"kilo_neto,optional"`
		ValueGs      *float64 `parquet:"total_gs,optional"`
		FreightUSD   *float64 `parquet:"flete_usd,optional"`
		InsuranceUSD *float64 `parquet:"seguro_usd,optional"`
	}
	path := filepath.Join(t.TempDir(), "china_ranking_mercaderias.parquet")
	rows := []nullableRanking{
		{Merchandise: ptr("Motos"), ValueGs: ptr(300.0)},
		{NetKilos: ptr(5.0)},
	}
	require.NoError(t, parquet.WriteFile(path, rows))

	got, err := loadRanking(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, RankingRecord{Merchandise: "Motos", Measures: Measures{ValueGs: 300}}, got[0])
	assert.Equal(t, "", got[1].Merchandise)
	assert.Equal(t, []string{"Motos"}, (&Tables{Ranking: got}).MerchandiseNames())
}

func TestLoad_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "puertos.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Aduana", "Mercaderia", "Total_GS"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"Asuncion", "Motos", 1500}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"Pilar", "Celulares", 250}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	got, err := loadPorts(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, PortRecord{Port: "Asuncion", Merchandise: "Motos", Measures: Measures{ValueGs: 1500}}, got[0])
	assert.Equal(t, "Pilar", got[1].Port)
}

func TestTables_Options(t *testing.T) {
	tables, err := Load(context.Background(), fixturePaths())
	require.NoError(t, err)

	assert.Equal(t, []string{"Celulares", "Motos", "Neumaticos"}, tables.MerchandiseNames())
	assert.Equal(t, []string{"Asuncion", "Ciudad del Este", "Encarnacion"}, tables.PortNames())

	lo, hi := tables.YearBounds()
	assert.Equal(t, 2021, lo)
	assert.Equal(t, 2023, hi)
	assert.Equal(t, []int{2021, 2022, 2023}, tables.Years())
}

func TestTables_EmptySeriesBounds(t *testing.T) {
	var tables Tables
	lo, hi := tables.YearBounds()
	assert.Zero(t, lo)
	assert.Zero(t, hi)
	assert.Empty(t, tables.Years())
	assert.Empty(t, tables.MerchandiseNames())
}

func TestMeasures_Add(t *testing.T) {
	m := Measures{NetKilos: 1, ValueGs: 2, FreightUSD: 3, InsuranceUSD: 4}
	m.Add(Measures{NetKilos: 10, ValueGs: 20, FreightUSD: 30, InsuranceUSD: 40})
	assert.Equal(t, Measures{NetKilos: 11, ValueGs: 22, FreightUSD: 33, InsuranceUSD: 44}, m)
}
