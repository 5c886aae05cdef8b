// Package models contains the shared domain types of the assistant.
package models

import "time"

// AnonymousUserKey is the reserved history key shared by all
// unauthenticated sessions.
const AnonymousUserKey = "anonymous"

// ChatTurn is one completed (question, answer) exchange for a user.
type ChatTurn struct {
	Query    string    `json:"query"`
	Response string    `json:"response"`
	At       time.Time `json:"at"`
}

// Customer is the profile of an authenticated user, loaded from the catalog.
type Customer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Sex  string `json:"sex"`
}

// PurchaseItem is one line of a customer's recent purchase history.
type PurchaseItem struct {
	Date     string  `json:"date"`
	Product  string  `json:"product"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Rate     float64 `json:"rate"`
}

// Product is a catalog product with its variant prices folded into one string.
type Product struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Category      string `json:"category,omitempty"`
	CategoryID    int64  `json:"category_id,omitempty"`
	VariantPrices string `json:"variant_prices,omitempty"`
}

// Category is a product category.
type Category struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	ProductCount int    `json:"count,omitempty"`
}

// ProductImage pairs a product name with one of its image links.
type ProductImage struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

// RowDocument is a flattened textual rendering of one catalog row,
// used to build the row-text vector index.
type RowDocument struct {
	Table   string         `json:"table"`
	Content string         `json:"content"`
	Data    map[string]any `json:"data"`
}

// DescriptionDocument carries one product description for the
// description vector index.
type DescriptionDocument struct {
	ProductID   int64  `json:"product_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ImageMetadata is the metadata stored alongside each image feature vector.
type ImageMetadata struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	ImageSource string `json:"image_source"`
}
