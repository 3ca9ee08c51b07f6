// Package catalog содержит клиентское представление каталога товаров:
// нормализацию ответа сервера и чистую фильтрацию по запросу и категории.
package catalog

import (
	"sort"
	"strings"
)

// AllCategories — значение селектора категории, отключающее фильтр по категории.
const AllCategories = "todas"

// RawProduct — товар в том виде, в котором его отдаёт сервер.
// Старые выгрузки каталога используют поле titulo вместо nombre.
type RawProduct struct {
	ID          int64   `json:"id"`
	Name        string  `json:"nombre"`
	Title       string  `json:"titulo"`
	Description string  `json:"descripcion"`
	Price       float64 `json:"precio"`
	Category    string  `json:"categoria"`
	Rating      float64 `json:"valoracion"`
	Stock       int     `json:"existencia"`
	Image       string  `json:"imagen"`
}

// Product — нормализованный товар каталога с единственным обязательным именем.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       float64
	Category    string
	Rating      float64
	Stock       int
	Image       string
}

// Normalize приводит ответ сервера к единой форме: поле nombre имеет
// приоритет, titulo используется только как запасной вариант.
func Normalize(raw []RawProduct) []Product {
	products := make([]Product, 0, len(raw))
	for _, r := range raw {
		name := r.Name
		if name == "" {
			name = r.Title
		}

		products = append(products, Product{
			ID:          r.ID,
			Name:        name,
			Description: r.Description,
			Price:       r.Price,
			Category:    r.Category,
			Rating:      r.Rating,
			Stock:       r.Stock,
			Image:       r.Image,
		})
	}
	return products
}

// Filter возвращает подмножество товаров, подходящее под строку поиска и категорию.
// Поиск — регистронезависимое вхождение подстроки в имя, описание или категорию;
// пустая строка совпадает со всеми товарами. Категория AllCategories отключает
// фильтр, иначе требуется точное регистронезависимое совпадение.
func Filter(products []Product, query, category string) []Product {
	query = strings.ToLower(strings.TrimSpace(query))
	byCategory := category != "" && !strings.EqualFold(category, AllCategories)

	res := make([]Product, 0, len(products))
	for _, p := range products {
		if byCategory && !strings.EqualFold(p.Category, category) {
			continue
		}

		if query != "" && !matchesQuery(p, query) {
			continue
		}

		res = append(res, p)
	}
	return res
}

func matchesQuery(p Product, query string) bool {
	return strings.Contains(strings.ToLower(p.Name), query) ||
		strings.Contains(strings.ToLower(p.Description), query) ||
		strings.Contains(strings.ToLower(p.Category), query)
}

// Categories возвращает отсортированный список категорий без повторов
// для построения селектора.
func Categories(products []Product) []string {
	seen := make(map[string]struct{}, len(products))
	var res []string
	for _, p := range products {
		if p.Category == "" {
			continue
		}
		key := strings.ToLower(p.Category)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		res = append(res, p.Category)
	}

	sort.Strings(res)
	return res
}
