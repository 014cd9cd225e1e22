package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/sales/internal/domain"
)

const opTimeout = 5 * time.Second

// saleRepositoryPostgres хранит агрегат Sale в таблицах sales и sale_items.
type saleRepositoryPostgres struct {
	db *sql.DB
}

// NewSaleRepository создаёт PostgreSQL-реализацию SaleRepository.
func NewSaleRepository(store *Store) *saleRepositoryPostgres {
	return &saleRepositoryPostgres{db: store.DB()}
}

// Create сохраняет продажу и все её позиции в одной транзакции.
func (r *saleRepositoryPostgres) Create(sale domain.Sale) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create sale tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, sale_number, sale_date, customer, branch,
			total_amount, cancelled, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, sale.ID, sale.SaleNumber, sale.SaleDate, sale.Customer, sale.Branch,
		sale.TotalAmount, sale.Cancelled, sale.Version, sale.CreatedAt, sale.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSaleVersionConflict
		}
		return fmt.Errorf("insert sale: %w", err)
	}

	for _, item := range sale.Items {
		if err := insertItemTx(ctx, tx, item); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create sale tx: %w", err)
	}
	return nil
}

// Get возвращает продажу вместе с позициями.
func (r *saleRepositoryPostgres) Get(id string) (domain.Sale, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var sale domain.Sale
	err := r.db.QueryRowContext(ctx, `
		SELECT id, sale_number, sale_date, customer, branch,
			total_amount, cancelled, version, created_at, updated_at
		FROM sales
		WHERE id = $1
	`, id).Scan(&sale.ID, &sale.SaleNumber, &sale.SaleDate, &sale.Customer, &sale.Branch,
		&sale.TotalAmount, &sale.Cancelled, &sale.Version, &sale.CreatedAt, &sale.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Sale{}, domain.ErrSaleNotFound
	}
	if err != nil {
		return domain.Sale{}, fmt.Errorf("select sale: %w", err)
	}

	items, err := r.loadItems(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}
	sale.Items = items

	return sale, nil
}

// Save обновляет продажу с проверкой версии (optimistic locking).
// Позиции перезаписываются целиком, так как агрегат всегда сохраняется полностью.
func (r *saleRepositoryPostgres) Save(sale domain.Sale) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save sale tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE sales
		SET sale_number = $1, sale_date = $2, customer = $3, branch = $4,
			total_amount = $5, cancelled = $6, version = version + 1, updated_at = $7
		WHERE id = $8 AND version = $9
	`, sale.SaleNumber, sale.SaleDate, sale.Customer, sale.Branch,
		sale.TotalAmount, sale.Cancelled, sale.UpdatedAt, sale.ID, sale.Version)
	if err != nil {
		return fmt.Errorf("update sale: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update sale affected rows: %w", err)
	}
	if affected == 0 {
		exists, err := saleExistsTx(ctx, tx, sale.ID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrSaleNotFound
		}
		return domain.ErrSaleVersionConflict
	}

	for _, item := range sale.Items {
		res, err := tx.ExecContext(ctx, `
			UPDATE sale_items
			SET product = $1, quantity = $2, unit_price = $3, discount = $4,
				total_item_amount = $5, cancelled = $6, updated_at = $7
			WHERE id = $8 AND sale_id = $9
		`, item.Product, item.Quantity, item.UnitPrice, item.Discount,
			item.TotalItemAmount, item.Cancelled, item.UpdatedAt, item.ID, sale.ID)
		if err != nil {
			return fmt.Errorf("update sale item %s: %w", item.ID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update sale item affected rows: %w", err)
		}
		if affected == 0 {
			if err := insertItemTx(ctx, tx, item); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save sale tx: %w", err)
	}
	return nil
}

// Delete удаляет продажу; позиции удаляются каскадно по внешнему ключу.
func (r *saleRepositoryPostgres) Delete(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete sale: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete sale affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrSaleNotFound
	}
	return nil
}

func (r *saleRepositoryPostgres) loadItems(ctx context.Context, saleID string) ([]domain.SaleItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sale_id, product, quantity, unit_price, discount,
			total_item_amount, cancelled, created_at, updated_at
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY created_at, id
	`, saleID)
	if err != nil {
		return nil, fmt.Errorf("select sale items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.SaleItem, 0, 4)
	for rows.Next() {
		var item domain.SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.Product, &item.Quantity,
			&item.UnitPrice, &item.Discount, &item.TotalItemAmount, &item.Cancelled,
			&item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan sale item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sale items: %w", err)
	}

	return items, nil
}

func insertItemTx(ctx context.Context, tx *sql.Tx, item domain.SaleItem) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO sale_items (id, sale_id, product, quantity, unit_price,
			discount, total_item_amount, cancelled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, item.ID, item.SaleID, item.Product, item.Quantity, item.UnitPrice,
		item.Discount, item.TotalItemAmount, item.Cancelled, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert sale item %s: %w", item.ID, err)
	}
	return nil
}

func saleExistsTx(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM sales WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check sale exists: %w", err)
	}
	return exists, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ domain.SaleRepository = (*saleRepositoryPostgres)(nil)
