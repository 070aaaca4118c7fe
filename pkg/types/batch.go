package types

import "fmt"

// BatchSummary - итог пакетной обработки. Ошибка по одному элементу не прерывает проход.
type BatchSummary struct {
	Procesados   int      `json:"procesados"`
	Actualizados int      `json:"actualizados"`
	Fallidos     int      `json:"fallidos"`
	Errores      []string `json:"errores,omitempty"`
}

func (s *BatchSummary) Fail(item string, err error) {
	s.Fallidos++
	s.Errores = append(s.Errores, fmt.Sprintf("%s: %v", item, err))
}

func (s *BatchSummary) HasFailures() bool { return s.Fallidos > 0 }
