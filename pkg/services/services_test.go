package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/brewline-ai/brewline-engine/pkg/catalog"
	"github.com/brewline-ai/brewline-engine/pkg/config"
	"github.com/brewline-ai/brewline-engine/pkg/fusion"
	"github.com/brewline-ai/brewline-engine/pkg/history"
	"github.com/brewline-ai/brewline-engine/pkg/llm"
	"github.com/brewline-ai/brewline-engine/pkg/models"
	"github.com/brewline-ai/brewline-engine/pkg/retrieval"
	"github.com/brewline-ai/brewline-engine/pkg/router"
	"github.com/brewline-ai/brewline-engine/pkg/vectorindex"
)

const testSchema = `
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
	FOREIGN KEY (Categories_id) REFERENCES Categories(Id)
);
CREATE TABLE Variant (
	Id INTEGER PRIMARY KEY,
	Product_id INTEGER,
	"Beverage Option" TEXT,
	Price REAL,
	Link_Image TEXT,
	FOREIGN KEY (Product_id) REFERENCES Product(Id)
);
CREATE TABLE Customers (
	id TEXT PRIMARY KEY,
	name TEXT,
	sex TEXT
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

INSERT INTO Categories VALUES (1, 'Tazo Tea Drinks', 'Các loại trà'), (2, 'Coffee', 'Các loại cà phê');
INSERT INTO Product VALUES
	(1, 1, 'Trà Đào Cam Sả', 'Trà đào thơm vị cam sả'),
	(2, 2, 'Cà Phê Sữa', 'Cà phê pha phin với sữa đặc');
INSERT INTO Variant VALUES
	(1, 1, 'Tall', 35000, 'http://img.example/tra-dao.jpg'),
	(2, 2, 'Tall', 25000, 'http://img.example/ca-phe-sua.jpg');
INSERT INTO Customers VALUES ('42', 'Lan', 'Nữ');
`

type testEnv struct {
	client  *llm.MockChatClient
	catalog *catalog.Store
	history *history.Store
	engine  *Engine
}

func newTestEnv(t *testing.T, rows *vectorindex.FlatIndex[models.RowDocument], images *vectorindex.FlatIndex[models.ImageMetadata], extractor retrieval.FeatureExtractor) *testEnv {
	t.Helper()

	path := filepath.Join(t.TempDir(), "shop.db")
	store, err := catalog.Open(&config.CatalogConfig{
		Driver:              "sqlite",
		Path:                path,
		QueryTimeoutSeconds: 5,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	_, err = store.DB().Exec(testSchema)
	require.NoError(t, err)

	if rows == nil {
		rows = vectorindex.NewFlatIndex[models.RowDocument](2)
	}
	if images == nil {
		images = vectorindex.NewFlatIndex[models.ImageMetadata](2)
	}
	if extractor == nil {
		extractor = &fixedExtractor{feature: []float32{0, 0}}
	}

	embedder := llm.NewMockEmbedder()
	embedder.CreateEmbeddingsFunc = func(ctx context.Context, inputs []string) ([][]float32, error) {
		vectors := make([][]float32, len(inputs))
		for i := range vectors {
			vectors[i] = []float32{0, 0}
		}
		return vectors, nil
	}

	descriptions := vectorindex.NewFlatIndex[models.DescriptionDocument](2)
	retriever := retrieval.NewRetriever(embedder, rows, descriptions, 3, zap.NewNop())
	searcher := retrieval.NewImageSearcher(extractor, images, 3, zap.NewNop())

	client := llm.NewMockChatClient()
	hist := history.NewStore(3, "", zap.NewNop())

	structured := NewStructured(client, store, 0.2, zap.NewNop())
	semantic := NewSemantic(client, retriever, searcher, store, 0.5, 3, fusion.NormSoftmax, 0.2, zap.NewNop())
	engine := NewEngine(router.New(client, zap.NewNop()), structured, semantic, hist, store, zap.NewNop())

	return &testEnv{client: client, catalog: store, history: hist, engine: engine}
}

type fixedExtractor struct {
	feature []float32
}

func (f *fixedExtractor) Extract(ctx context.Context, imageData []byte) ([]float32, error) {
	return f.feature, nil
}

type failingExtractor struct{}

func (f *failingExtractor) Extract(ctx context.Context, imageData []byte) ([]float32, error) {
	return nil, errors.New("feature service unreachable")
}

func TestStructuredAnswer_ExecutesGeneratedQuery(t *testing.T) {
	env := newTestEnv(t, nil, nil, nil)

	env.client.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		if env.client.GenerateResponseCalls == 1 {
			return "```sql\nSELECT Name_Product FROM Product ORDER BY Id LIMIT 1\n```", nil
		}
		return "Sản phẩm đầu tiên là Trà Đào Cam Sả.", nil
	}

	structured := NewStructured(env.client, env.catalog, 0.2, zap.NewNop())
	response, err := structured.Answer(context.Background(), "sản phẩm đầu tiên là gì?", history.EmptyHistoryMarker, "schema", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "Sản phẩm đầu tiên là Trà Đào Cam Sả.", response)
	require.Equal(t, 2, env.client.GenerateResponseCalls)
	// The answer prompt carries the formatted query results.
	assert.Contains(t, env.client.Prompts[1], "Name_Product: Trà Đào Cam Sả")
}

func TestStructuredAnswer_RefusesUnsafeQuery(t *testing.T) {
	env := newTestEnv(t, nil, nil, nil)

	env.client.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		return "SELECT * FROM Product; DROP TABLE Product", nil
	}

	structured := NewStructured(env.client, env.catalog, 0.2, zap.NewNop())
	response, err := structured.Answer(context.Background(), "xoá hết đi", history.EmptyHistoryMarker, "schema", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, refusalUnsafeSQL, response)
	// No answer phrasing call after the refusal.
	assert.Equal(t, 1, env.client.GenerateResponseCalls)
}

func TestStructuredAnswer_RefusesFailingQuery(t *testing.T) {
	env := newTestEnv(t, nil, nil, nil)

	env.client.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		return "SELECT Name FROM NoSuchTable LIMIT 3", nil
	}

	structured := NewStructured(env.client, env.catalog, 0.2, zap.NewNop())
	response, err := structured.Answer(context.Background(), "câu hỏi", history.EmptyHistoryMarker, "schema", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, refusalUnsafeSQL, response)
}

func TestSemanticAnswer_UsesRetrievedContext(t *testing.T) {
	rows := vectorindex.NewFlatIndex[models.RowDocument](2)
	require.NoError(t, rows.Add([]float32{0, 0}, models.RowDocument{Table: "Product", Content: "Bảng Product: tên sản phẩm: Trà Đào Cam Sả"}))
	env := newTestEnv(t, rows, nil, nil)

	env.client.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		return "Trà Đào Cam Sả rất thơm.", nil
	}

	_, err := env.engine.semantic.Answer(context.Background(), "trà đào thế nào?", history.EmptyHistoryMarker, nil, nil)
	require.NoError(t, err)
	assert.Contains(t, env.client.Prompts[0], "Bảng Product: tên sản phẩm: Trà Đào Cam Sả")
}

func TestSemanticAnswer_EmptyIndexAdmitsNoResults(t *testing.T) {
	env := newTestEnv(t, nil, nil, nil)

	_, err := env.engine.semantic.Answer(context.Background(), "trà đào thế nào?", history.EmptyHistoryMarker, nil, nil)
	require.NoError(t, err)
	assert.Contains(t, env.client.Prompts[0], noResultsContext)
}

func TestEngineAnswerQuery_RoutesToSQL(t *testing.T) {
	env := newTestEnv(t, nil, nil, nil)

	env.client.SelectToolFunc = func(ctx context.Context, prompt, system string, tools []llm.ToolDefinition) (*llm.ToolSelection, error) {
		return &llm.ToolSelection{Name: router.ToolSQL, Arguments: "{}"}, nil
	}
	env.client.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		if env.client.GenerateResponseCalls == 1 {
			return "SELECT Name_Product FROM Product LIMIT 3", nil
		}
		return "Chúng tôi có Trà Đào Cam Sả và Cà Phê Sữa.", nil
	}

	answer, err := env.engine.AnswerQuery(context.Background(), "42", "có những món gì?")
	require.NoError(t, err)

	assert.Equal(t, router.ToolSQL, answer.Tool)
	assert.Equal(t, "Chúng tôi có Trà Đào Cam Sả và Cà Phê Sữa.", answer.Response)

	// The turn is recorded for the next prompt.
	turns := env.history.Get("42")
	require.Len(t, turns, 1)
	assert.Equal(t, "có những món gì?", turns[0].Query)
}

func TestEngineAnswerQuery_UnknownToolRefusesAndRecords(t *testing.T) {
	env := newTestEnv(t, nil, nil, nil)

	env.client.SelectToolFunc = func(ctx context.Context, prompt, system string, tools []llm.ToolDefinition) (*llm.ToolSelection, error) {
		return &llm.ToolSelection{Name: "use_imaginary_tool"}, nil
	}

	answer, err := env.engine.AnswerQuery(context.Background(), "42", "câu hỏi lạ")
	require.NoError(t, err)
	assert.Equal(t, refusalUnknownTool, answer.Response)

	turns := env.history.Get("42")
	require.Len(t, turns, 1)
	assert.Equal(t, refusalUnknownTool, turns[0].Response)
}

func TestEngineAnswerQuery_ModelFailureRecordsErrorTurn(t *testing.T) {
	env := newTestEnv(t, nil, nil, nil)

	env.client.SelectToolFunc = func(ctx context.Context, prompt, system string, tools []llm.ToolDefinition) (*llm.ToolSelection, error) {
		return &llm.ToolSelection{Name: router.ToolSQL, Arguments: "{}"}, nil
	}
	env.client.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		return "", errors.New("connection reset by peer")
	}

	answer, err := env.engine.AnswerQuery(context.Background(), "42", "có gì ngon?")
	require.NoError(t, err)
	assert.Contains(t, answer.Response, systemErrorPrefix)

	// The failed turn is still recorded.
	turns := env.history.Get("42")
	require.Len(t, turns, 1)
	assert.Equal(t, "có gì ngon?", turns[0].Query)
	assert.Equal(t, answer.Response, turns[0].Response)
}

func TestEngineAnswerQuery_RoutingTransportFailureRecordsErrorTurn(t *testing.T) {
	env := newTestEnv(t, nil, nil, nil)

	env.client.SelectToolFunc = func(ctx context.Context, prompt, system string, tools []llm.ToolDefinition) (*llm.ToolSelection, error) {
		return nil, errors.New("503 service unavailable")
	}

	answer, err := env.engine.AnswerQuery(context.Background(), "42", "có gì ngon?")
	require.NoError(t, err)
	assert.Contains(t, answer.Response, systemErrorPrefix)
	require.Len(t, env.history.Get("42"), 1)
}

func TestEngineAnswerImageQuery_FailureRecordsErrorTurn(t *testing.T) {
	images := vectorindex.NewFlatIndex[models.ImageMetadata](2)
	require.NoError(t, images.Add([]float32{0, 0}, models.ImageMetadata{ProductID: 1, ProductName: "Trà Đào Cam Sả"}))
	env := newTestEnv(t, nil, images, &failingExtractor{})

	answer, err := env.engine.AnswerImageQuery(context.Background(), "42", "đây là món gì?", []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Contains(t, answer.Response, systemErrorPrefix)

	turns := env.history.Get("42")
	require.Len(t, turns, 1)
	assert.Equal(t, answer.Response, turns[0].Response)
}

func TestEngineAnswerImageQuery_AttachesProductImages(t *testing.T) {
	images := vectorindex.NewFlatIndex[models.ImageMetadata](2)
	require.NoError(t, images.Add([]float32{0, 0}, models.ImageMetadata{ProductID: 1, ProductName: "Trà Đào Cam Sả"}))
	env := newTestEnv(t, nil, images, &fixedExtractor{feature: []float32{0, 0}})

	env.client.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		return "Hình này giống Trà Đào Cam Sả của cửa hàng.", nil
	}

	answer, err := env.engine.AnswerImageQuery(context.Background(), "42", "đây là món gì?", []byte{1, 2, 3})
	require.NoError(t, err)

	require.Len(t, answer.Images, 1)
	assert.Equal(t, "Trà Đào Cam Sả", answer.Images[0].Name)
	assert.Equal(t, "http://img.example/tra-dao.jpg", answer.Images[0].Image)

	// The image prompt carries the fused candidate with catalog prices.
	assert.Contains(t, env.client.Prompts[0], "Rank 1: Tên: Trà Đào Cam Sả")
	assert.Contains(t, env.client.Prompts[0], "Tall: 35000đ")
}

func TestEngineClearHistory(t *testing.T) {
	env := newTestEnv(t, nil, nil, nil)
	env.history.Add("42", "q", "r")

	env.engine.ClearHistory("42")
	assert.Empty(t, env.history.Get("42"))
}

func TestSuggestionExecuteQuery_Categories(t *testing.T) {
	env := newTestEnv(t, nil, nil, nil)
	suggestion := NewSuggestion(env.catalog, env.engine, env.history, zap.NewNop())

	result, err := suggestion.ExecuteQuery(context.Background(), "42", QueryCategories)
	require.NoError(t, err)

	assert.Equal(t, "categories", result.Data.Type)
	require.Len(t, result.Data.Categories, 2)
	assert.Equal(t, "Cho tôi xem danh mục đồ uống", result.Question)
	assert.Contains(t, result.Response, "Đây là các danh mục đồ uống:")

	turns := env.history.Get("42")
	require.Len(t, turns, 1)
	assert.Equal(t, result.Response, turns[0].Response)
}

func TestSuggestionExecuteQuery_ProductsWithImages(t *testing.T) {
	env := newTestEnv(t, nil, nil, nil)
	suggestion := NewSuggestion(env.catalog, env.engine, env.history, zap.NewNop())

	result, err := suggestion.ExecuteQuery(context.Background(), "42", QueryCoffee)
	require.NoError(t, err)

	assert.Equal(t, "products", result.Data.Type)
	require.Len(t, result.Data.Products, 1)
	assert.Equal(t, "Cà Phê Sữa", result.Data.Products[0].Name)
	assert.Contains(t, result.Response, "danh mục Coffee")

	require.Len(t, result.Images, 1)
	assert.Equal(t, "http://img.example/ca-phe-sua.jpg", result.Images[0].Image)
}

func TestSuggestionExecuteQuery_UnknownKind(t *testing.T) {
	env := newTestEnv(t, nil, nil, nil)
	suggestion := NewSuggestion(env.catalog, env.engine, env.history, zap.NewNop())

	_, err := suggestion.ExecuteQuery(context.Background(), "42", QueryKind("bubble_tea"))
	assert.Error(t, err)
}

func TestSuggestionSuggest_CategoryScope(t *testing.T) {
	env := newTestEnv(t, nil, nil, nil)
	suggestion := NewSuggestion(env.catalog, env.engine, env.history, zap.NewNop())

	env.client.SelectToolFunc = func(ctx context.Context, prompt, system string, tools []llm.ToolDefinition) (*llm.ToolSelection, error) {
		return &llm.ToolSelection{Name: router.ToolVector}, nil
	}
	env.client.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		return "Bạn có thể thử Coffee hoặc Tazo Tea Drinks.", nil
	}

	answer, err := suggestion.Suggest(context.Background(), "42", ScopeCategory, 0)
	require.NoError(t, err)
	assert.Equal(t, "Bạn có thể thử Coffee hoặc Tazo Tea Drinks.", answer.Response)

	// The routing prompt embeds the category listing.
	assert.Contains(t, env.client.Prompts[0], "Coffee: Các loại cà phê")
}

func TestQuestionFor(t *testing.T) {
	assert.Equal(t, "Cho tôi xem danh mục đồ uống", QuestionFor(QueryCategories))
	assert.Equal(t, "Cho tôi xem các loại Smoothies", QuestionFor(QuerySmoothies))
	assert.Equal(t, "Cho tôi xem thông tin về mystery", QuestionFor(QueryKind("mystery")))
}
