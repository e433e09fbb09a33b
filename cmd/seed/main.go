package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"foodorder/internal/database"
	"foodorder/internal/domain"
	"foodorder/internal/repository"
)

func price(v string) decimal.NullDecimal {
	if v == "" {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.RequireFromString(v))
}

func main() {
	_ = godotenv.Load()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "foodorder.db"
	}

	db, err := database.Connect(dsn)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("migrate failed:", err)
	}

	// orders keep item snapshots, so the catalog can be rebuilt freely
	log.Println("Cleaning catalog...")
	db.Exec("DELETE FROM addons")
	db.Exec("DELETE FROM products")

	ctx := context.Background()
	repo := repository.NewCatalogRepository(db)

	// ================== PRODUCTS ==================
	log.Println("Creating products...")
	products := []domain.Product{
		{Name: "Margherita", Category: domain.CategoryPizza, PriceSmall: price("9.90"), PriceMedium: price("12.90"), PriceLarge: price("15.90"), PriceJumbo: price("21.90")},
		{Name: "Capricciosa", Category: domain.CategoryPizza, PriceSmall: price("11.50"), PriceMedium: price("14.50"), PriceLarge: price("17.90")},
		{Name: "Quattro Formaggi", Category: domain.CategoryPizza, PriceMedium: price("15.90"), PriceLarge: price("18.90")},
		{Name: "Classic Burger", Category: "burger", PriceMedium: price("11.90")},
		{Name: "Chicken Burger", Category: "burger", PriceMedium: price("10.90"), PriceLarge: price("13.90")},
		{Name: "Shopska Salad", Category: "salad", PriceSmall: price("6.50"), PriceMedium: price("8.90")},
		{Name: "Caesar Salad", Category: "salad", PriceMedium: price("9.90")},
		{Name: "Fries", Category: "side", PriceSmall: price("3.50"), PriceLarge: price("5.50")},
		{Name: "Lemonade", Category: "drink", PriceSmall: price("2.90"), PriceLarge: price("4.50")},
		{Name: "Seasonal Calzone", Category: domain.CategoryPizza, PriceMedium: price("16.50"), Disabled: true},
	}
	for i := range products {
		if err := repo.CreateProduct(ctx, &products[i]); err != nil {
			log.Fatal("create product failed:", err)
		}
	}

	// ================== ADD-ONS ==================
	log.Println("Creating add-ons...")
	addons := []domain.Addon{
		{Name: "Extra mozzarella", Type: "cheese", Price: decimal.RequireFromString("2.00")},
		{Name: "Cheddar", Type: "cheese", Price: decimal.RequireFromString("1.80")},
		{Name: "Parmesan", Type: "cheese", Price: decimal.RequireFromString("2.20")},
		{Name: "Ham", Type: "meat", Price: decimal.RequireFromString("2.50")},
		{Name: "Bacon", Type: "meat", Price: decimal.RequireFromString("2.80")},
		{Name: "Mushrooms", Type: "veggie", Price: decimal.RequireFromString("1.20")},
		{Name: "Olives", Type: "veggie", Price: decimal.RequireFromString("1.20")},
		{Name: "Jalapenos", Type: "veggie", Price: decimal.RequireFromString("1.00")},
		{Name: "Garlic sauce", Type: "sauce", Price: decimal.RequireFromString("0.50")},
		{Name: "BBQ sauce", Type: "sauce", Price: decimal.RequireFromString("0.50")},
		{Name: "Ketchup", Type: "sauce", Price: decimal.RequireFromString("0.50")},
		{Name: "Ranch", Type: "sauce", Price: decimal.RequireFromString("0.50")},
	}
	for i := range addons {
		if err := repo.CreateAddon(ctx, &addons[i]); err != nil {
			log.Fatal("create add-on failed:", err)
		}
	}

	log.Printf("Seed complete: %d products, %d add-ons", len(products), len(addons))
}
