package types

import (
	"time"
)

// Window - окно анализа по датам, обе границы включительно.
type Window struct {
	Desde time.Time
	Hasta time.Time
}

// Bounds переводит окно в полуоткрытый интервал [начало первого дня, начало дня после последнего).
func (w Window) Bounds() (time.Time, time.Time) {
	from := DateOnly(w.Desde)
	to := DateOnly(w.Hasta).AddDate(0, 0, 1)
	return from, to
}

func (w Window) Periodo() Periodo {
	return Periodo{Inicio: DateOnly(w.Desde).Format("2006-01-02"), Fin: DateOnly(w.Hasta).Format("2006-01-02")}
}

// DateOnly отбрасывает время, дата берётся в UTC.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

type Periodo struct {
	Inicio string `json:"inicio"`
	Fin    string `json:"fin"`
}

// BottleneckThresholds - пороги признания группы узким местом.
type BottleneckThresholds struct {
	MeanDays   float64
	MaxDays    int
	HighVolume int
}

// DefaultThresholds - значения, с которыми система работала всегда: среднее > 7, максимум > 15, объём > 100.
func DefaultThresholds() BottleneckThresholds {
	return BottleneckThresholds{MeanDays: 7, MaxDays: 15, HighVolume: 100}
}

type BottleneckStat struct {
	Estado             string  `json:"estado"`
	Cantidad           int     `json:"cantidad"`
	TiempoPromedio     float64 `json:"tiempoPromedio"`
	TiempoMaximo       int     `json:"tiempoMaximo"`
	EsCuelloDeBottella bool    `json:"esCuelloDeBottella"`
}

type Recommendation struct {
	Tipo        string   `json:"tipo"`
	Prioridad   string   `json:"prioridad"`
	Titulo      string   `json:"titulo"`
	Descripcion string   `json:"descripcion"`
	Acciones    []string `json:"acciones"`
}
