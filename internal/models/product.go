package models

import "time"

// Product is a catalog entry. The catalog lives only in local storage.
type Product struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	Price          int64             `json:"price"`
	Image          string            `json:"image"`
	Category       string            `json:"category"`
	Specifications map[string]string `json:"specifications,omitempty"`
	InStock        bool              `json:"inStock"`
	Stock          int               `json:"stock"`
}

// Available reports whether qty units can be sold.
func (p Product) Available(qty int) bool { return p.InStock && qty <= p.Stock }

type PaymentMethod string

const (
	PayCredit      PaymentMethod = "credit"
	PayBank        PaymentMethod = "bank"
	PayCash        PaymentMethod = "cash"
	PayInstallment PaymentMethod = "installment"
)

const OrderPending = "pending"

type Order struct {
	ID            string        `json:"id"`
	ProductID     string        `json:"productId"`
	ProductName   string        `json:"productName"`
	Quantity      int           `json:"quantity"`
	Total         int64         `json:"total"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	Date          time.Time     `json:"date"`
	Status        string        `json:"status"`
	UserEmail     string        `json:"userEmail,omitempty"`
}

func FindProduct(list []Product, id string) int {
	for i, p := range list {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Categories lists the distinct categories in first-seen order.
func Categories(list []Product) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range list {
		if !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	return out
}

// InCategory filters list by category; an empty category keeps everything.
func InCategory(list []Product, category string) []Product {
	if category == "" {
		return list
	}
	out := make([]Product, 0, len(list))
	for _, p := range list {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// DefaultProducts is the catalog seeded into an empty store.
func DefaultProducts() []Product {
	return []Product{
		{
			ID: "1", Name: "三菱 Fuso Canter 3.5噸貨車", Price: 280000, Category: "輕型貨車",
			Description: "適合市區配送，經濟實惠的輕型貨車。配備高效能柴油引擎，載重能力強，維護成本低。",
			Image:       "https://images.unsplash.com/photo-1605559424843-9e4c228bf1c2?w=800",
			Specifications: map[string]string{
				"載重量": "3.5噸", "引擎": "4.9L 柴油", "馬力": "175HP", "變速箱": "6速手動", "車廂長度": "4.2米",
			},
			InStock: true, Stock: 5,
		},
		{
			ID: "2", Name: "五十鈴 Isuzu NQR 5.5噸貨車", Price: 420000, Category: "中型貨車",
			Description: "中型貨運首選，可靠性高，適合中長途運輸。寬敞駕駛室，舒適性佳。",
			Image:       "https://images.unsplash.com/photo-1558618666-fcd25c85cd64?w=800",
			Specifications: map[string]string{
				"載重量": "5.5噸", "引擎": "5.2L 柴油", "馬力": "190HP", "變速箱": "6速手動/自動", "車廂長度": "5.5米",
			},
			InStock: true, Stock: 3,
		},
		{
			ID: "3", Name: "日野 Hino 300系列 7.5噸貨車", Price: 680000, Category: "重型貨車",
			Description: "重型運輸專用，動力強勁，適合大型貨物運輸。配備先進安全系統。",
			Image:       "https://images.unsplash.com/photo-1601362840469-51e4d8d58785?w=800",
			Specifications: map[string]string{
				"載重量": "7.5噸", "引擎": "7.7L 柴油", "馬力": "260HP", "變速箱": "6速手動", "車廂長度": "6.8米",
			},
			InStock: true, Stock: 2,
		},
		{
			ID: "4", Name: "富豪 Volvo FM 12噸貨車", Price: 1200000, Category: "重型貨車",
			Description: "歐洲進口，高端配置，適合長途運輸。舒適駕駛室，節能環保。",
			Image:       "https://images.unsplash.com/photo-1619642751034-765dfdf7c58e?w=800",
			Specifications: map[string]string{
				"載重量": "12噸", "引擎": "10.8L 柴油", "馬力": "420HP", "變速箱": "12速自動", "車廂長度": "9.6米",
			},
			InStock: true, Stock: 1,
		},
		{
			ID: "5", Name: "平治 Mercedes-Benz Atego 8噸貨車", Price: 950000, Category: "重型貨車",
			Description: "德國工藝，品質保證。適合各種運輸需求，維護方便。",
			Image:       "https://images.unsplash.com/photo-1601362840469-51e4d8d58785?w=800",
			Specifications: map[string]string{
				"載重量": "8噸", "引擎": "7.2L 柴油", "馬力": "320HP", "變速箱": "8速自動", "車廂長度": "7.5米",
			},
			InStock: true, Stock: 2,
		},
		{
			ID: "6", Name: "豐田 Toyota Dyna 4.5噸貨車", Price: 350000, Category: "中型貨車",
			Description: "日系品質，耐用可靠。適合日常配送，燃油效率高。",
			Image:       "https://images.unsplash.com/photo-1558618666-fcd25c85cd64?w=800",
			Specifications: map[string]string{
				"載重量": "4.5噸", "引擎": "4.0L 柴油", "馬力": "150HP", "變速箱": "5速手動", "車廂長度": "4.8米",
			},
			InStock: true, Stock: 4,
		},
	}
}
