// Package storefront simulates shoppers of the e-commerce store. Each
// session owns its cart and publishes add_to_cart and checkout events to
// the events topic.
package storefront

import "sort"

// Product is one item of the store catalog
type Product struct {
	ID          int64
	Name        string
	Category    string
	Price       float64
	Description string
}

// Catalog is an ordered set of products
type Catalog []Product

type catalogEntry struct {
	name        string
	price       float64
	description string
}

// DefaultCatalog returns the store's 40 products with ids 1 to 40, ten
// per category
func DefaultCatalog() Catalog {
	var catalog Catalog
	add := func(firstID int64, category string, entries []catalogEntry) {
		for i, e := range entries {
			catalog = append(catalog, Product{
				ID:          firstID + int64(i),
				Name:        e.name,
				Category:    category,
				Price:       e.price,
				Description: e.description,
			})
		}
	}

	add(1, "Books", []catalogEntry{
		{"Atomic Habits", 15.99, "Transform your habits and change your life."},
		{"The Power of Now", 13.99, "A guide to spiritual enlightenment."},
		{"The 5 AM Club", 14.99, "Own your morning, elevate your life."},
		{"Think and Grow Rich", 12.99, "Classic book on success mindset."},
		{"The Subtle Art of Not Giving a F*ck", 16.99, "A counterintuitive approach to living a good life."},
		{"You Are a Badass", 14.49, "How to stop doubting and start living."},
		{"Daring Greatly", 17.49, "The power of vulnerability."},
		{"Grit", 18.99, "Passion and perseverance for long-term goals."},
		{"Mindset", 19.99, "The new psychology of success."},
		{"Can't Hurt Me", 20.99, "Master your mind and defy the odds."},
	})
	add(11, "Electronics", []catalogEntry{
		{"iPhone 15", 999.99, "Latest Apple iPhone with A17 chip."},
		{"Samsung Galaxy S24", 899.99, "Flagship smartphone from Samsung."},
		{"MacBook Pro", 1299.99, "Apple's latest powerful laptop."},
		{"Sony WH-1000XM5", 349.99, "Noise-canceling wireless headphones."},
		{"iPad Air", 599.99, "Powerful tablet from Apple."},
		{"Dell XPS 15", 1399.99, "High-performance laptop from Dell."},
		{"Bose QuietComfort 45", 329.99, "Premium noise-canceling headphones."},
		{"GoPro Hero 11", 499.99, "Action camera for adventurers."},
		{"Nintendo Switch", 299.99, "Hybrid gaming console."},
		{"Kindle Paperwhite", 129.99, "E-reader with glare-free display."},
	})
	add(21, "Fashion", []catalogEntry{
		{"Nike Air Max", 149.99, "Comfortable and stylish sneakers."},
		{"Adidas Ultraboost", 179.99, "Premium running shoes."},
		{"Levi's 501 Jeans", 69.99, "Classic straight fit jeans."},
		{"Ray-Ban Aviators", 129.99, "Iconic sunglasses for a cool look."},
		{"Casio G-Shock Watch", 99.99, "Durable and stylish wristwatch."},
		{"North Face Jacket", 199.99, "Warm and waterproof winter jacket."},
		{"Michael Kors Handbag", 249.99, "Elegant designer handbag."},
		{"Polo Ralph Lauren Shirt", 89.99, "Casual and sophisticated shirt."},
		{"Timberland Boots", 159.99, "Classic outdoor boots."},
		{"Fossil Leather Wallet", 49.99, "Premium leather wallet."},
	})
	add(31, "Digital Subscriptions", []catalogEntry{
		{"Netflix Premium", 15.99, "Unlimited movies and TV shows."},
		{"Spotify Family", 14.99, "Ad-free music streaming for the family."},
		{"Amazon Prime", 12.99, "Fast delivery and streaming benefits."},
		{"Disney+", 7.99, "Stream Disney, Pixar, Marvel, and Star Wars."},
		{"Adobe Creative Cloud", 52.99, "Suite of creative apps."},
		{"Microsoft 365", 69.99, "Office apps and cloud storage."},
		{"YouTube Premium", 11.99, "Ad-free videos and music."},
		{"Audible", 14.95, "Unlimited audiobooks and podcasts."},
		{"NYTimes Digital", 9.99, "Unlimited news articles online."},
		{"PlayStation Plus", 9.99, "Online gaming and free monthly games."},
	})
	return catalog
}

// Lookup finds a product by id
func (c Catalog) Lookup(id int64) (Product, bool) {
	for _, p := range c {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// Categories returns the distinct categories in alphabetical order
func (c Catalog) Categories() []string {
	seen := make(map[string]bool)
	var categories []string
	for _, p := range c {
		if !seen[p.Category] {
			seen[p.Category] = true
			categories = append(categories, p.Category)
		}
	}
	sort.Strings(categories)
	return categories
}
