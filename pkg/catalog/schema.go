package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"
)

// tableDescriptions annotates the core tables for the SQL generation
// prompt. Tables not listed get a generic line built from their
// singularized name.
var tableDescriptions = map[string]string{
	"orders":     "Lưu thông tin đơn hàng của khách hàng",
	"product":    "Chứa thông tin về tên, mô tả về thành phần, màu sắc đồ uống và hình ảnh của các sản phẩm đang bán",
	"variant":    "Chứa thông tin chi tiết về từng biến thể của một sản phẩm đồ uống như kích cỡ, hàm lượng dinh dưỡng, giá, hạng bán ra",
	"categories": "Lưu danh sách các danh mục phân loại sản phẩm đồ uống. Mỗi danh mục tương ứng với một nhóm sản phẩm cùng loại (ví dụ: cà phê, trà, nước ép)",
	"store":      "Lưu thông tin các cửa hàng: địa chỉ, số điện thoại, giờ mở cửa",
}

// hiddenSchemaTables never appear in the schema description handed to
// the model. Customer data is reachable only through dedicated lookups.
var hiddenSchemaTables = map[string]bool{
	"customers":            true,
	"customer_preferences": true,
}

// DescribeSchema renders the catalog schema for prompt inclusion:
// per table a Vietnamese description, the column list with types and
// primary keys, foreign keys, and named indexes.
func (s *Store) DescribeSchema(ctx context.Context) (string, error) {
	tables, err := s.dialect.TableNames(ctx, s.db)
	if err != nil {
		return "", err
	}

	var sections []string
	for _, table := range tables {
		if hiddenSchemaTables[strings.ToLower(table)] {
			continue
		}

		columns, err := s.dialect.Columns(ctx, s.db, table)
		if err != nil {
			return "", err
		}
		fks, err := s.dialect.ForeignKeys(ctx, s.db, table)
		if err != nil {
			return "", err
		}
		indexes, err := s.dialect.Indexes(ctx, s.db, table)
		if err != nil {
			return "", err
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Bảng %s: %s\n", table, describeTable(table))

		for _, col := range columns {
			pk := ""
			if col.PrimaryKey {
				pk = " (PRIMARY KEY)"
			}
			fmt.Fprintf(&sb, "%s (%s)%s\n", col.Name, col.Type, pk)
		}

		if len(fks) > 0 {
			sb.WriteString("Khóa ngoại:\n")
			for _, fk := range fks {
				fmt.Fprintf(&sb, "FOREIGN KEY (%s) REFERENCES %s(%s)\n", fk.FromColumn, fk.ToTable, fk.ToColumn)
			}
		}

		if len(indexes) > 0 {
			sb.WriteString("Chỉ mục:\n")
			for _, idx := range indexes {
				unique := ""
				if idx.Unique {
					unique = "UNIQUE "
				}
				fmt.Fprintf(&sb, "%sINDEX %s\n", unique, idx.Name)
			}
		}

		sections = append(sections, strings.TrimRight(sb.String(), "\n"))
	}

	return strings.Join(sections, "\n\n"), nil
}

// describeTable returns the annotation for a table, or a generic line
// derived from the singular entity name for unknown tables.
func describeTable(table string) string {
	if desc, ok := tableDescriptions[strings.ToLower(table)]; ok {
		return desc
	}
	entity := inflection.Singular(strings.ToLower(table))
	return fmt.Sprintf("Dữ liệu về %s", entity)
}
