package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/brewline-ai/brewline-engine/pkg/apperrors"
	"github.com/brewline-ai/brewline-engine/pkg/models"
)

// ProductDetail is a product with its variant prices folded into a
// single display string for prompt context.
type ProductDetail struct {
	ID            int64
	Name          string
	Description   string
	VariantPrices string
}

// GetProductDetail fetches a product and aggregates its variant
// options and prices, e.g. "Tall: 25000đ; Grande: 30000đ".
func (s *Store) GetProductDetail(ctx context.Context, productID int64) (*ProductDetail, error) {
	detail := &ProductDetail{ID: productID}

	var description sql.NullString
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT Name_Product, Descriptions FROM Product WHERE Id = %s", s.dialect.Placeholder(1)),
		productID,
	).Scan(&detail.Name, &description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %d: %w", productID, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", productID, err)
	}
	detail.Description = description.String

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT "Beverage Option", Price FROM Variant WHERE Product_id = %s ORDER BY Price`, s.dialect.Placeholder(1)),
		productID,
	)
	if err != nil {
		return nil, fmt.Errorf("get variants for product %d: %w", productID, err)
	}
	defer rows.Close()

	var parts []string
	for rows.Next() {
		var option sql.NullString
		var price sql.NullFloat64
		if err := rows.Scan(&option, &price); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		label := option.String
		if label == "" {
			label = "Mặc định"
		}
		parts = append(parts, fmt.Sprintf("%s: %gđ", label, price.Float64))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	detail.VariantPrices = strings.Join(parts, "; ")
	return detail, nil
}

// GetCustomer looks up a customer profile. Anonymous users have no
// profile and return ErrNotFound.
func (s *Store) GetCustomer(ctx context.Context, userID string) (*models.Customer, error) {
	if userID == "" || userID == models.AnonymousUserKey {
		return nil, fmt.Errorf("customer %q: %w", userID, apperrors.ErrNotFound)
	}

	var customer models.Customer
	var name, sex sql.NullString
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT id, name, sex FROM Customers WHERE id = %s", s.dialect.Placeholder(1)),
		userID,
	).Scan(&customer.ID, &name, &sex)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("customer %q: %w", userID, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get customer %q: %w", userID, err)
	}

	customer.Name = name.String
	customer.Sex = sex.String
	return &customer, nil
}

// GetPurchaseHistory returns the user's five most recent purchases,
// newest first. Anonymous users get an empty history.
func (s *Store) GetPurchaseHistory(ctx context.Context, userID string) ([]models.PurchaseItem, error) {
	if userID == "" || userID == models.AnonymousUserKey {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT o.Order_date,
		       p.Name_Product || ' ' || v."Beverage Option",
		       od.Quantity,
		       (v.Price * od.Quantity) AS Price,
		       od.Rate
		FROM Orders o
		JOIN Order_detail od ON o.Id = od.Order_id
		JOIN Variant v ON od.Variant_id = v.Id
		JOIN Product p ON v.Product_id = p.Id
		WHERE o.Customer_id = %s
		ORDER BY o.Order_date DESC
		LIMIT 5`, s.dialect.Placeholder(1))

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get purchase history for %q: %w", userID, err)
	}
	defer rows.Close()

	var items []models.PurchaseItem
	for rows.Next() {
		var item models.PurchaseItem
		var rate sql.NullFloat64
		if err := rows.Scan(&item.Date, &item.Product, &item.Quantity, &item.Price, &rate); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		item.Rate = rate.Float64
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetAllCategories lists every product category, alphabetically with
// product counts for the menu surface.
func (s *Store) GetAllCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.Id, c.Name_Cat, c.Description, COUNT(p.Id)
		FROM Categories c
		LEFT JOIN Product p ON p.Categories_id = c.Id
		GROUP BY c.Id, c.Name_Cat, c.Description
		ORDER BY c.Name_Cat`)
	if err != nil {
		return nil, fmt.Errorf("get categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var cat models.Category
		var description sql.NullString
		if err := rows.Scan(&cat.ID, &cat.Name, &description, &cat.ProductCount); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cat.Description = description.String
		categories = append(categories, cat)
	}
	return categories, rows.Err()
}

// GetProductsByCategory lists the products of one category.
func (s *Store) GetProductsByCategory(ctx context.Context, categoryID int64) ([]models.Product, error) {
	query := fmt.Sprintf(`
		SELECT p.Id, p.Name_Product, p.Descriptions, c.Name_Cat, c.Id
		FROM Product p
		JOIN Categories c ON p.Categories_id = c.Id
		WHERE p.Categories_id = %s
		ORDER BY p.Name_Product`, s.dialect.Placeholder(1))

	return s.scanProducts(ctx, query, categoryID)
}

// GetAllProducts lists every product with its category, grouped by
// category then name.
func (s *Store) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	return s.scanProducts(ctx, `
		SELECT p.Id, p.Name_Product, p.Descriptions, c.Name_Cat, c.Id
		FROM Product p
		JOIN Categories c ON p.Categories_id = c.Id
		ORDER BY c.Name_Cat, p.Name_Product`)
}

func (s *Store) scanProducts(ctx context.Context, query string, args ...any) ([]models.Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		var description sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &description, &p.Category, &p.CategoryID); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.Description = description.String
		products = append(products, p)
	}
	return products, rows.Err()
}

// ImageSource pairs a product with one of its variant image links, the
// input of the image index build.
type ImageSource struct {
	ProductID   int64
	ProductName string
	Source      string
}

// ListVariantImages returns every non-empty variant image link with its
// product.
func (s *Store) ListVariantImages(ctx context.Context) ([]ImageSource, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.Id, p.Name_Product, v.Link_Image
		FROM Variant v
		JOIN Product p ON v.Product_id = p.Id
		WHERE v.Link_Image IS NOT NULL AND v.Link_Image != ''
		ORDER BY p.Id, v.Id`)
	if err != nil {
		return nil, fmt.Errorf("list variant images: %w", err)
	}
	defer rows.Close()

	var sources []ImageSource
	for rows.Next() {
		var src ImageSource
		if err := rows.Scan(&src.ProductID, &src.ProductName, &src.Source); err != nil {
			return nil, fmt.Errorf("scan variant image: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// ExtractProductImages finds product names mentioned in the text and
// returns one image link per matched product, ordered by first mention.
// Matching is case-insensitive substring search over all product names.
func (s *Store) ExtractProductImages(ctx context.Context, text string) ([]models.ProductImage, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT Name_Product FROM Product")
	if err != nil {
		return nil, fmt.Errorf("list product names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan product name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lowered := strings.ToLower(text)

	type match struct {
		name string
		pos  int
	}
	var matches []match
	for _, name := range names {
		if pos := strings.Index(lowered, strings.ToLower(name)); pos >= 0 {
			matches = append(matches, match{name: name, pos: pos})
		}
	}
	// Order by first mention so the reply's images follow its text.
	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].pos < matches[b].pos
	})

	imageQuery := fmt.Sprintf(`
		SELECT v.Link_Image
		FROM Variant v
		JOIN Product p ON v.Product_id = p.Id
		WHERE p.Name_Product = %s
		LIMIT 1`, s.dialect.Placeholder(1))

	var images []models.ProductImage
	for _, m := range matches {
		var link sql.NullString
		err := s.db.QueryRowContext(ctx, imageQuery, m.name).Scan(&link)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get image for %q: %w", m.name, err)
		}
		if link.String == "" {
			continue
		}
		images = append(images, models.ProductImage{Name: m.name, Image: link.String})
	}

	return images, nil
}
