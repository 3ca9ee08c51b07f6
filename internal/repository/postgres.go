// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"

	"github.com/AlejandroDiBattista/TUP25-P4/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrUserExists возвращается при попытке зарегистрировать уже занятый email.
var (
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrProductNotFound возвращается, если товар не найден в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrCartItemNotFound возвращается, если товара нет в корзине.
	ErrCartItemNotFound = errors.New("product is not in the cart")
	// ErrCartEmpty возвращается при попытке оформить покупку из пустой корзины.
	ErrCartEmpty = errors.New("cart is empty")
	// ErrInsufficientStock возвращается, если запрошенное количество превышает остаток.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrPurchaseNotFound возвращается, если покупка не найдена.
	ErrPurchaseNotFound = errors.New("purchase not found")
	// ErrPurchaseForbidden возвращается при обращении к чужой покупке.
	ErrPurchaseForbidden = errors.New("purchase belongs to another user")
)

// PostgresRepository предоставляет доступ к хранилищу данных магазина в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт репозиторий, применяет миграции и при пустом
// каталоге загружает начальный набор товаров.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if err := r.seedProducts(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет операцию при сбоях сериализации и дедлоках.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) &&
			(pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateUser создаёт нового пользователя.
func (r *PostgresRepository) CreateUser(ctx context.Context, name, email string, passwordHash []byte) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO usuarios (nombre, email, password_hash) VALUES ($1, $2, $3) RETURNING id`,
		name, email, passwordHash,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrUserExists, email)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// GetUserByEmail возвращает пользователя по email.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, nombre, email, password_hash, created_at FROM usuarios WHERE email = $1`,
		email,
	)

	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}

// GetUserByID возвращает пользователя по идентификатору.
func (r *PostgresRepository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, nombre, email, password_hash, created_at FROM usuarios WHERE id = $1`,
		id,
	)

	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}

// ListProducts возвращает каталог, при необходимости суженный по категории и строке поиска.
func (r *PostgresRepository) ListProducts(ctx context.Context, category, search string) ([]model.Product, error) {
	query := `SELECT id, nombre, descripcion, categoria, precio, valoracion, existencia, imagen
	          FROM productos WHERE TRUE`
	args := []any{}

	if category != "" {
		args = append(args, "%"+category+"%")
		query += fmt.Sprintf(" AND categoria ILIKE $%d", len(args))
	}
	if search != "" {
		args = append(args, "%"+search+"%")
		query += fmt.Sprintf(" AND (nombre ILIKE $%d OR descripcion ILIKE $%d)", len(args), len(args))
	}
	query += " ORDER BY id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.PriceCents, &p.Rating, &p.Stock, &p.Image); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}

// GetProduct возвращает товар по идентификатору.
func (r *PostgresRepository) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, nombre, descripcion, categoria, precio, valoracion, existencia, imagen
		 FROM productos WHERE id = $1`,
		id,
	)

	var p model.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.PriceCents, &p.Rating, &p.Stock, &p.Image)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return &p, nil
}

// GetCartLines возвращает строки корзины пользователя с данными товаров.
func (r *PostgresRepository) GetCartLines(ctx context.Context, userID int64) ([]model.CartLine, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT i.producto_id, p.nombre, p.categoria, p.precio, i.cantidad, p.existencia, p.imagen
		 FROM items_carrito i
		 JOIN productos p ON p.id = i.producto_id
		 WHERE i.usuario_id = $1
		 ORDER BY i.producto_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select cart: %w", err)
	}
	defer rows.Close()

	var lines []model.CartLine
	for rows.Next() {
		var l model.CartLine
		if err := rows.Scan(&l.ProductID, &l.Name, &l.Category, &l.PriceCents, &l.Quantity, &l.Stock, &l.Image); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		l.SubtotalCents = l.PriceCents * int64(l.Quantity)
		lines = append(lines, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return lines, nil
}

// AddCartItem добавляет товар в корзину, наращивая количество существующей позиции.
// Остаток проверяется с учётом количества, уже лежащего в корзине.
func (r *PostgresRepository) AddCartItem(ctx context.Context, userID, productID int64, qty int) error {
	return r.withRetry(ctx, func(ctx context.Context) error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var stock int
		err = tx.QueryRow(ctx, `SELECT existencia FROM productos WHERE id = $1 FOR UPDATE`, productID).Scan(&stock)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrProductNotFound
			}
			return fmt.Errorf("lock product: %w", err)
		}

		var current int
		err = tx.QueryRow(ctx,
			`SELECT cantidad FROM items_carrito WHERE usuario_id = $1 AND producto_id = $2`,
			userID, productID,
		).Scan(&current)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("select cart item: %w", err)
		}

		next := current + qty
		if next > stock {
			return ErrInsufficientStock
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO items_carrito (usuario_id, producto_id, cantidad) VALUES ($1, $2, $3)
			 ON CONFLICT (usuario_id, producto_id) DO UPDATE SET cantidad = $3`,
			userID, productID, next,
		)
		if err != nil {
			return fmt.Errorf("upsert cart item: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

// SetCartItemQuantity выставляет точное количество позиции; ноль удаляет её.
func (r *PostgresRepository) SetCartItemQuantity(ctx context.Context, userID, productID int64, qty int) error {
	if qty == 0 {
		return r.RemoveCartItem(ctx, userID, productID)
	}

	return r.withRetry(ctx, func(ctx context.Context) error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var stock int
		err = tx.QueryRow(ctx, `SELECT existencia FROM productos WHERE id = $1 FOR UPDATE`, productID).Scan(&stock)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrProductNotFound
			}
			return fmt.Errorf("lock product: %w", err)
		}

		if qty > stock {
			return ErrInsufficientStock
		}

		cmdTag, err := tx.Exec(ctx,
			`UPDATE items_carrito SET cantidad = $3 WHERE usuario_id = $1 AND producto_id = $2`,
			userID, productID, qty,
		)
		if err != nil {
			return fmt.Errorf("update cart item: %w", err)
		}
		if cmdTag.RowsAffected() == 0 {
			return ErrCartItemNotFound
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

// RemoveCartItem убирает позицию из корзины.
func (r *PostgresRepository) RemoveCartItem(ctx context.Context, userID, productID int64) error {
	cmdTag, err := r.pool.Exec(ctx,
		`DELETE FROM items_carrito WHERE usuario_id = $1 AND producto_id = $2`,
		userID, productID,
	)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

// ClearCart опустошает корзину пользователя.
func (r *PostgresRepository) ClearCart(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM items_carrito WHERE usuario_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// Checkout оформляет покупку из активной корзины в одной транзакции:
// проверяет остатки, списывает их, снимает снимок строк и очищает корзину.
func (r *PostgresRepository) Checkout(ctx context.Context, userID int64, address, card string) (*model.Purchase, model.Cart, error) {
	var purchase *model.Purchase
	var cart model.Cart

	err := r.withRetry(ctx, func(ctx context.Context) error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		rows, err := tx.Query(ctx,
			`SELECT i.producto_id, p.nombre, p.categoria, p.precio, i.cantidad, p.existencia, p.imagen
			 FROM items_carrito i
			 JOIN productos p ON p.id = i.producto_id
			 WHERE i.usuario_id = $1
			 ORDER BY i.producto_id
			 FOR UPDATE OF p`,
			userID,
		)
		if err != nil {
			return fmt.Errorf("select cart for checkout: %w", err)
		}

		var lines []model.CartLine
		for rows.Next() {
			var l model.CartLine
			if err := rows.Scan(&l.ProductID, &l.Name, &l.Category, &l.PriceCents, &l.Quantity, &l.Stock, &l.Image); err != nil {
				rows.Close()
				return fmt.Errorf("scan cart line: %w", err)
			}
			l.SubtotalCents = l.PriceCents * int64(l.Quantity)
			lines = append(lines, l)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}

		if len(lines) == 0 {
			return ErrCartEmpty
		}

		for _, l := range lines {
			if l.Quantity > l.Stock {
				return fmt.Errorf("%w: product %d", ErrInsufficientStock, l.ProductID)
			}
		}

		cart = model.ComputeCart(lines)

		p := model.Purchase{
			UserID:        userID,
			Address:       address,
			Card:          card,
			ShippingCents: cart.ShippingCents,
			TotalCents:    cart.TotalCents,
		}
		err = tx.QueryRow(ctx,
			`INSERT INTO compras (usuario_id, direccion, tarjeta, envio, total)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id, fecha`,
			userID, address, card, cart.ShippingCents, cart.TotalCents,
		).Scan(&p.ID, &p.Date)
		if err != nil {
			return fmt.Errorf("insert purchase: %w", err)
		}

		for _, l := range lines {
			_, err = tx.Exec(ctx,
				`UPDATE productos SET existencia = existencia - $2 WHERE id = $1`,
				l.ProductID, l.Quantity,
			)
			if err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}

			_, err = tx.Exec(ctx,
				`INSERT INTO items_compra (compra_id, producto_id, nombre, precio_unitario, cantidad)
				 VALUES ($1, $2, $3, $4, $5)`,
				p.ID, l.ProductID, l.Name, l.PriceCents, l.Quantity,
			)
			if err != nil {
				return fmt.Errorf("insert purchase item: %w", err)
			}
		}

		_, err = tx.Exec(ctx, `DELETE FROM items_carrito WHERE usuario_id = $1`, userID)
		if err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		purchase = &p
		return nil
	})
	if err != nil {
		return nil, model.Cart{}, err
	}

	return purchase, cart, nil
}

// PurchaseSummary описывает покупку в списке истории.
type PurchaseSummary struct {
	ID            int64
	Date          time.Time
	TotalCents    int64
	ShippingCents int64
	ItemCount     int
}

// ListPurchases возвращает покупки пользователя, новые первыми.
func (r *PostgresRepository) ListPurchases(ctx context.Context, userID int64) ([]PurchaseSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.fecha, c.total, c.envio, COUNT(i.id)
		 FROM compras c
		 LEFT JOIN items_compra i ON i.compra_id = c.id
		 WHERE c.usuario_id = $1
		 GROUP BY c.id
		 ORDER BY c.fecha DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select purchases: %w", err)
	}
	defer rows.Close()

	var res []PurchaseSummary
	for rows.Next() {
		var s PurchaseSummary
		if err := rows.Scan(&s.ID, &s.Date, &s.TotalCents, &s.ShippingCents, &s.ItemCount); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		res = append(res, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetPurchase возвращает покупку и её строки; чужие покупки не выдаются.
func (r *PostgresRepository) GetPurchase(ctx context.Context, userID, purchaseID int64) (*model.Purchase, []model.PurchaseItem, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, usuario_id, fecha, direccion, tarjeta, envio, total FROM compras WHERE id = $1`,
		purchaseID,
	)

	var p model.Purchase
	err := row.Scan(&p.ID, &p.UserID, &p.Date, &p.Address, &p.Card, &p.ShippingCents, &p.TotalCents)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrPurchaseNotFound
		}
		return nil, nil, fmt.Errorf("get purchase: %w", err)
	}

	if p.UserID != userID {
		return nil, nil, ErrPurchaseForbidden
	}

	rows, err := r.pool.Query(ctx,
		`SELECT producto_id, nombre, precio_unitario, cantidad
		 FROM items_compra
		 WHERE compra_id = $1
		 ORDER BY id`,
		purchaseID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("select purchase items: %w", err)
	}
	defer rows.Close()

	var items []model.PurchaseItem
	for rows.Next() {
		var it model.PurchaseItem
		if err := rows.Scan(&it.ProductID, &it.Name, &it.UnitPriceCents, &it.Quantity); err != nil {
			return nil, nil, fmt.Errorf("scan purchase item: %w", err)
		}
		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("rows error: %w", err)
	}

	return &p, items, nil
}

// RevokeToken помечает токен с указанным jti отозванным.
func (r *PostgresRepository) RevokeToken(ctx context.Context, jti uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO tokens_revocados (jti) VALUES ($1) ON CONFLICT (jti) DO NOTHING`,
		jti,
	)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsTokenRevoked сообщает, был ли токен с указанным jti отозван.
func (r *PostgresRepository) IsTokenRevoked(ctx context.Context, jti uuid.UUID) (bool, error) {
	var revoked bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM tokens_revocados WHERE jti = $1)`,
		jti,
	).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}
