package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/brewline-ai/brewline-engine/pkg/apperrors"
	"github.com/brewline-ai/brewline-engine/pkg/config"
	"github.com/brewline-ai/brewline-engine/pkg/models"
)

const fixtureSchema = `
CREATE TABLE Categories (
	Id INTEGER PRIMARY KEY,
	Name_Cat TEXT,
	Description TEXT
);
CREATE TABLE Product (
	Id INTEGER PRIMARY KEY,
	Categories_id INTEGER,
	Name_Product TEXT,
	Descriptions TEXT,
	Link_Image TEXT,
	FOREIGN KEY (Categories_id) REFERENCES Categories(Id)
);
CREATE TABLE Variant (
	Id INTEGER PRIMARY KEY,
	Product_id INTEGER,
	"Beverage Option" TEXT,
	Price REAL,
	Calories REAL,
	Link_Image TEXT,
	FOREIGN KEY (Product_id) REFERENCES Product(Id)
);
CREATE TABLE Customers (
	id TEXT PRIMARY KEY,
	name TEXT,
	sex TEXT,
	picture BLOB,
	embedding BLOB
);
CREATE TABLE Orders (
	Id INTEGER PRIMARY KEY,
	Customer_id TEXT,
	Order_date TEXT
);
CREATE TABLE Order_detail (
	Id INTEGER PRIMARY KEY,
	Order_id INTEGER,
	Variant_id INTEGER,
	Quantity INTEGER,
	Rate REAL
);

INSERT INTO Categories VALUES (1, 'Tea', 'Các loại trà'), (2, 'Coffee', 'Các loại cà phê');
INSERT INTO Product VALUES
	(1, 1, 'Trà Đào Cam Sả', 'Trà đào thơm vị cam sả', 'http://img.example/tra-dao.jpg'),
	(2, 2, 'Cà Phê Sữa', 'Cà phê pha phin với sữa đặc', 'http://img.example/ca-phe-sua.jpg');
INSERT INTO Variant VALUES
	(1, 1, 'Tall', 35000, 120, 'http://img.example/v1.jpg'),
	(2, 1, 'Grande', 45000, 160, 'http://img.example/v2.jpg'),
	(3, 2, 'Tall', 25000, 90, 'http://img.example/v3.jpg');
INSERT INTO Customers (id, name, sex) VALUES ('42', 'Lan', 'Nữ');
INSERT INTO Orders VALUES (1, '42', '2026-08-01'), (2, '42', '2026-08-15');
INSERT INTO Order_detail VALUES (1, 1, 1, 2, 5), (2, 2, 3, 1, 4);
`

func openFixture(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "shop.db")
	store, err := Open(&config.CatalogConfig{
		Driver:              "sqlite",
		Path:                path,
		QueryTimeoutSeconds: 5,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	_, err = store.DB().Exec(fixtureSchema)
	require.NoError(t, err)
	return store
}

func TestFormatResults(t *testing.T) {
	columns := []string{"Name_Product", "Price"}
	results := []map[string]any{
		{"Name_Product": "Trà Đào", "Price": 35000},
		{"Name_Product": "Cà Phê Sữa", "Price": 25000},
	}

	got := FormatResults(columns, results)
	assert.Equal(t, "Name_Product: Trà Đào, Price: 35000\nName_Product: Cà Phê Sữa, Price: 25000", got)
}

func TestFormatResults_Empty(t *testing.T) {
	assert.Equal(t, EmptyResultsMarker, FormatResults(nil, nil))
}

func TestExecuteAndFormat(t *testing.T) {
	store := openFixture(t)

	got, err := store.ExecuteAndFormat(context.Background(), "SELECT Name_Product FROM Product ORDER BY Id LIMIT 1")
	require.NoError(t, err)
	assert.Equal(t, "Name_Product: Trà Đào Cam Sả", got)
}

func TestExecuteAndFormat_NoRows(t *testing.T) {
	store := openFixture(t)

	got, err := store.ExecuteAndFormat(context.Background(), "SELECT Name_Product FROM Product WHERE Id = 999")
	require.NoError(t, err)
	assert.Equal(t, EmptyResultsMarker, got)
}

func TestDescribeSchema(t *testing.T) {
	store := openFixture(t)

	schema, err := store.DescribeSchema(context.Background())
	require.NoError(t, err)

	assert.Contains(t, schema, "Bảng Product:")
	assert.Contains(t, schema, "Name_Product (TEXT)")
	assert.Contains(t, schema, "Id (INTEGER) (PRIMARY KEY)")
	assert.Contains(t, schema, "FOREIGN KEY (Categories_id) REFERENCES Categories(Id)")
	// Customer data never reaches the model's schema view.
	assert.NotContains(t, schema, "Bảng Customers")
}

func TestLoadRowDocuments(t *testing.T) {
	store := openFixture(t)

	docs, err := store.LoadRowDocuments(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, docs)

	var productDoc *models.RowDocument
	for i := range docs {
		if docs[i].Table == "Product" {
			productDoc = &docs[i]
			break
		}
	}
	require.NotNil(t, productDoc)

	assert.Contains(t, productDoc.Content, "Bảng Product:")
	assert.Contains(t, productDoc.Content, "tên sản phẩm:")
	// Image links are excluded from the retrieval corpus.
	assert.NotContains(t, productDoc.Content, "http://img.example")
}

func TestLoadDescriptionDocuments(t *testing.T) {
	store := openFixture(t)

	docs, err := store.LoadDescriptionDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, int64(1), docs[0].ProductID)
	assert.Equal(t, "Trà Đào Cam Sả", docs[0].Name)
	assert.Contains(t, docs[0].Description, "cam sả")
}

func TestGetProductDetail(t *testing.T) {
	store := openFixture(t)

	detail, err := store.GetProductDetail(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, "Trà Đào Cam Sả", detail.Name)
	assert.Equal(t, "Tall: 35000đ; Grande: 45000đ", detail.VariantPrices)
}

func TestGetProductDetail_NotFound(t *testing.T) {
	store := openFixture(t)

	_, err := store.GetProductDetail(context.Background(), 999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGetCustomer(t *testing.T) {
	store := openFixture(t)

	customer, err := store.GetCustomer(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "Lan", customer.Name)
	assert.Equal(t, "Nữ", customer.Sex)
}

func TestGetCustomer_AnonymousHasNoProfile(t *testing.T) {
	store := openFixture(t)

	_, err := store.GetCustomer(context.Background(), models.AnonymousUserKey)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = store.GetCustomer(context.Background(), "")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGetPurchaseHistory(t *testing.T) {
	store := openFixture(t)

	items, err := store.GetPurchaseHistory(context.Background(), "42")
	require.NoError(t, err)
	require.Len(t, items, 2)

	// Newest order first, with quantity-scaled price.
	assert.Equal(t, "2026-08-15", items[0].Date)
	assert.Equal(t, "Cà Phê Sữa Tall", items[0].Product)
	assert.Equal(t, 70000.0, items[1].Price)
}

func TestGetPurchaseHistory_Anonymous(t *testing.T) {
	store := openFixture(t)

	items, err := store.GetPurchaseHistory(context.Background(), models.AnonymousUserKey)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestGetAllCategories(t *testing.T) {
	store := openFixture(t)

	categories, err := store.GetAllCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 2)

	assert.Equal(t, "Coffee", categories[0].Name)
	assert.Equal(t, int64(1), categories[0].ProductCount)
}

func TestGetProductsByCategory(t *testing.T) {
	store := openFixture(t)

	products, err := store.GetProductsByCategory(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Trà Đào Cam Sả", products[0].Name)
	assert.Equal(t, "Tea", products[0].Category)
}

func TestGetAllProducts(t *testing.T) {
	store := openFixture(t)

	products, err := store.GetAllProducts(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestListVariantImages(t *testing.T) {
	store := openFixture(t)

	sources, err := store.ListVariantImages(context.Background())
	require.NoError(t, err)
	require.Len(t, sources, 3)

	assert.Equal(t, int64(1), sources[0].ProductID)
	assert.Equal(t, "Trà Đào Cam Sả", sources[0].ProductName)
	assert.Equal(t, "http://img.example/v1.jpg", sources[0].Source)
}

func TestExtractProductImages(t *testing.T) {
	store := openFixture(t)

	images, err := store.ExtractProductImages(context.Background(),
		"Bạn nên thử Cà Phê Sữa hoặc Trà Đào Cam Sả nhé!")
	require.NoError(t, err)
	require.Len(t, images, 2)

	// Ordered by first mention in the text.
	assert.Equal(t, "Cà Phê Sữa", images[0].Name)
	assert.Equal(t, "Trà Đào Cam Sả", images[1].Name)
	assert.NotEmpty(t, images[0].Image)
}
