package seeders

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SeedTiposTramites - upsert по codigo; повторный запуск обновляет описание, сроки и стоимость.
func SeedTiposTramites(ctx context.Context, db *pgxpool.Pool) error {
	log.Println("  - Наполнение таблицы 'tipos_tramites'...")
	query := `
		INSERT INTO tipos_tramites (codigo, nombre, descripcion, documentos_requeridos, tiempo_estimado_dias, costo, activo)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		ON CONFLICT (codigo) DO UPDATE SET
			nombre = EXCLUDED.nombre,
			descripcion = EXCLUDED.descripcion,
			documentos_requeridos = EXCLUDED.documentos_requeridos,
			tiempo_estimado_dias = EXCLUDED.tiempo_estimado_dias,
			costo = EXCLUDED.costo,
			updated_at = NOW();`

	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, t := range tiposTramitesData {
		if _, err := tx.Exec(ctx, query, t.Codigo, t.Nombre, t.Descripcion, t.DocumentosRequeridos, t.TiempoEstimadoDias, t.Costo); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
