package model

// Правила расчёта итогов корзины. НДС зависит от категории товара,
// доставка бесплатна для крупных заказов.
const (
	reducedTaxCategory = "Electrónica"

	reducedTaxPercent  = 10
	standardTaxPercent = 21

	freeShippingOverCents = 1000_00
	shippingFlatCents     = 50_00
)

// TaxCents возвращает НДС в центах для строки с указанной категорией.
func TaxCents(category string, subtotalCents int64) int64 {
	if category == reducedTaxCategory {
		return subtotalCents * reducedTaxPercent / 100
	}
	return subtotalCents * standardTaxPercent / 100
}

// ShippingCents возвращает стоимость доставки для подытога корзины.
func ShippingCents(subtotalCents int64) int64 {
	if subtotalCents > freeShippingOverCents {
		return 0
	}
	if subtotalCents > 0 {
		return shippingFlatCents
	}
	return 0
}

// ComputeCart собирает корзину с итогами из строк. Подытоги строк
// должны быть уже заполнены.
func ComputeCart(lines []CartLine) Cart {
	cart := Cart{Lines: lines}
	for _, l := range lines {
		cart.SubtotalCents += l.SubtotalCents
		cart.TaxCents += TaxCents(l.Category, l.SubtotalCents)
	}
	cart.ShippingCents = ShippingCents(cart.SubtotalCents)
	cart.TotalCents = cart.SubtotalCents + cart.TaxCents + cart.ShippingCents
	return cart
}
