package catalog

// Default returns the business catalog backing the data assistant: customer
// accounts, the product listing and the order ledger.
func Default() *Catalog {
	c, err := New(
		Resource{
			Name:        "clients",
			Description: "customer accounts",
			Columns: []Column{
				{Name: "id", Type: "integer", Description: "primary key"},
				{Name: "last_name", Type: "text", Description: "customer last name"},
				{Name: "first_name", Type: "text", Description: "customer first name"},
				{Name: "email", Type: "text", Description: "contact email"},
				{Name: "city", Type: "text", Description: "city of residence"},
				{Name: "signup_date", Type: "date", Description: "account creation date"},
				{Name: "status", Type: "text", Description: "account status", Values: []string{"active", "inactive"}},
			},
			Synonyms: []string{
				"client", "clients", "customer", "customers", "account", "accounts", "user base",
			},
		},
		Resource{
			Name:        "products",
			Description: "product listing",
			Columns: []Column{
				{Name: "id", Type: "integer", Description: "primary key"},
				{Name: "name", Type: "text", Description: "product name"},
				{Name: "category", Type: "text", Description: "product category"},
				{Name: "price", Type: "numeric", Description: "unit price"},
			},
			Synonyms: []string{
				"product", "products", "produit", "produits", "item", "items", "catalogue", "catalog",
			},
		},
		Resource{
			Name:        "orders",
			Description: "order ledger; revenue is the sum of total_amount on completed orders",
			Columns: []Column{
				{Name: "id", Type: "integer", Description: "primary key"},
				{Name: "client_id", Type: "integer", Description: "references clients.id"},
				{Name: "product_id", Type: "integer", Description: "references products.id"},
				{Name: "quantity", Type: "integer", Description: "ordered quantity"},
				{Name: "total_amount", Type: "numeric", Description: "order total"},
				{Name: "order_date", Type: "date", Description: "date of the order"},
				{Name: "status", Type: "text", Description: "order status", Values: []string{"completed", "in_progress", "cancelled"}},
			},
			Relations: []string{
				"orders.client_id -> clients.id",
				"orders.product_id -> products.id",
			},
			Synonyms: []string{
				"order", "orders", "commande", "commandes", "purchase", "purchases",
				"sale", "sales", "vente", "ventes", "revenue", "chiffre d'affaires", "turnover",
			},
		},
	)
	if err != nil {
		panic(err)
	}
	return c
}
