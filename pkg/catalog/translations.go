package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Translations maps column names to Vietnamese display names used when
// flattening rows into retrieval documents. Missing entries fall back
// to the raw column name.
type Translations map[string]string

// defaultTranslations covers the stock coffee shop schema.
var defaultTranslations = Translations{
	"Id":              "id",
	"Name_Cat":        "tên danh mục",
	"Description":     "mô tả danh mục",
	"Categories_id":   "id danh mục",
	"Name_Product":    "tên sản phẩm",
	"Descriptions":    "mô tả sản phẩm",
	"Link_Image":      "link ảnh",
	"Beverage Option": "tùy chọn đồ uống",
	"Calories":        "calo",
	"Dietary_Fibre_g": "chất xơ",
	"Sugars_g":        "đường",
	"Protein_g":       "protein",
	"Vitamin_A":       "vitamin A",
	"Vitamin_C":       "vitamin C",
	"Caffeine_mg":     "caffeine",
	"Price":           "đơn giá",
	"Sales_rank":      "bán chạy",
	"Name_Store":      "tên cửa hàng",
	"Address":         "địa chỉ",
	"Phone":           "số điện thoại",
	"Open_Close":      "giờ mở cửa đóng cửa",
	"Customer_id":     "id khách hàng",
	"Store_id":        "id cửa hàng",
	"Order_date":      "ngày đặt hàng",
	"Order_id":        "id đơn hàng",
	"Product_id":      "id sản phẩm",
	"Quantity":        "số lượng",
	"Rate":            "đánh giá",
	"name":            "tên khách hàng",
	"sex":             "giới tính",
	"age":             "tuổi",
	"location":        "địa chỉ",
}

// LoadTranslations reads a YAML column translation file, merged over
// the built-in defaults so a partial file only overrides what it names.
// A missing file returns the defaults.
func LoadTranslations(path string) (Translations, error) {
	merged := make(Translations, len(defaultTranslations))
	for k, v := range defaultTranslations {
		merged[k] = v
	}

	if path == "" {
		return merged, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return merged, nil
		}
		return nil, fmt.Errorf("read translations %s: %w", path, err)
	}

	var overrides Translations
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse translations %s: %w", path, err)
	}
	for k, v := range overrides {
		merged[k] = v
	}

	return merged, nil
}

// DisplayName returns the Vietnamese display name for a column,
// falling back to the raw name.
func (t Translations) DisplayName(column string) string {
	if name, ok := t[column]; ok {
		return name
	}
	return column
}
