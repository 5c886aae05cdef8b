// Package router decides which answering path serves a user request:
// the structured SQL path or the semantic retrieval path.
package router

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/brewline-ai/brewline-engine/pkg/apperrors"
	"github.com/brewline-ai/brewline-engine/pkg/llm"
	"github.com/brewline-ai/brewline-engine/pkg/prompts"
)

// Tool names the model can route to.
const (
	ToolSQL    = "use_sql_tool"
	ToolVector = "use_vector_tool"
)

// Tools returns the routing tool catalog. Descriptions are Vietnamese
// because the model reasons over Vietnamese user queries.
func Tools() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		llm.NewToolDefinition(
			ToolSQL,
			"Sử dụng công cụ này khi truy vấn của người dùng yêu cầu truy xuất, tính toán hoặc tổng hợp dữ liệu có cấu trúc từ cơ sở dữ liệu. "+
				"Phù hợp với các câu hỏi cần số liệu cụ thể, danh sách, tổng, trung bình, đếm số lượng, so sánh, sắp xếp, lọc hoặc thống kê dựa trên dữ liệu trong bảng. "+
				"Ví dụ: \"Tính tổng doanh thu tháng 5\", \"Liệt kê 3 sản phẩm bán chạy nhất\", \"Có bao nhiêu đơn hàng\", \"Sản phẩm nào giá dưới 50k\". "+
				"KHÔNG sử dụng công cụ này cho các câu hỏi chung, mô tả, hay ý kiến.",
			map[string]llm.ParameterProperty{},
			[]string{},
		),
		llm.NewToolDefinition(
			ToolVector,
			"Sử dụng công cụ này khi truy vấn của người dùng mang tính chung chung, mô tả, giải thích, đưa ra ý kiến, gợi ý hoặc tìm kiếm theo ngữ nghĩa "+
				"mà KHÔNG yêu cầu tính toán hoặc truy xuất dữ liệu chính xác từ cơ sở dữ liệu. "+
				"Phù hợp với câu hỏi về mô tả sản phẩm, thông tin cửa hàng, lời khuyên chung, hoặc khi câu hỏi mang tính trò chuyện, chào hỏi. "+
				"Ví dụ: \"Trà sữa trân châu đường đen có vị như thế nào?\", \"Cửa hàng mở cửa mấy giờ?\", \"Gợi ý đồ uống giải nhiệt\", \"Chào bạn\". "+
				"Sử dụng công cụ này như phương án dự phòng nếu không có công cụ nào khác phù hợp.",
			map[string]llm.ParameterProperty{},
			[]string{},
		),
	}
}

// Router asks the chat model to pick an answering path.
type Router struct {
	client llm.ChatClient
	logger *zap.Logger
}

// New creates a router over the given chat client.
func New(client llm.ChatClient, logger *zap.Logger) *Router {
	return &Router{client: client, logger: logger.Named("router")}
}

// Route selects the tool for a user query. Fails closed: any model
// output that is not one of the known tools surfaces as an error
// wrapping apperrors.ErrNoToolSelected, never as a silent default.
func (r *Router) Route(ctx context.Context, query, history, schemaInfo string) (string, error) {
	tools := Tools()

	var toolList strings.Builder
	for _, t := range tools {
		fmt.Fprintf(&toolList, "- %s: %s\n", t.Name, t.Description)
	}

	prompt := prompts.ToolSelection(query, history, schemaInfo, toolList.String())

	selection, err := r.client.SelectTool(ctx, prompt, prompts.ToolSelectionSystemMessage, tools)
	if err != nil {
		return "", fmt.Errorf("select tool: %w", err)
	}

	switch selection.Name {
	case ToolSQL, ToolVector:
		r.logger.Info("routed query", zap.String("tool", selection.Name))
		return selection.Name, nil
	default:
		return "", fmt.Errorf("%w: unknown tool %q", apperrors.ErrNoToolSelected, selection.Name)
	}
}
