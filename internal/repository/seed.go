package repository

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
)

//go:embed productos.json
var productsJSON []byte

// seedProduct — товар начального каталога. Старые выгрузки называют
// имя товара titulo, новые — nombre.
type seedProduct struct {
	ID          int64   `json:"id"`
	Name        string  `json:"nombre"`
	Title       string  `json:"titulo"`
	Description string  `json:"descripcion"`
	Price       float64 `json:"precio"`
	Category    string  `json:"categoria"`
	Rating      float64 `json:"valoracion"`
	Stock       int     `json:"existencia"`
	Image       string  `json:"imagen"`
}

func (p seedProduct) name() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Title
}

// seedProducts загружает начальный каталог, если таблица товаров пуста.
func (r *PostgresRepository) seedProducts(ctx context.Context) error {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM productos)`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check products: %w", err)
	}
	if exists {
		return nil
	}

	var seed []seedProduct
	if err := json.Unmarshal(productsJSON, &seed); err != nil {
		return fmt.Errorf("decode seed products: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range seed {
		_, err = tx.Exec(ctx,
			`INSERT INTO productos (id, nombre, descripcion, categoria, precio, valoracion, existencia, imagen)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			p.ID, p.name(), p.Description, p.Category,
			int64(math.Round(p.Price*100)), p.Rating, p.Stock, p.Image,
		)
		if err != nil {
			return fmt.Errorf("insert seed product %d: %w", p.ID, err)
		}
	}

	// Сиды вставляются с явными id, поэтому последовательность нужно догнать.
	_, err = tx.Exec(ctx,
		`SELECT setval(pg_get_serial_sequence('productos', 'id'), (SELECT MAX(id) FROM productos))`,
	)
	if err != nil {
		return fmt.Errorf("advance products sequence: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}
