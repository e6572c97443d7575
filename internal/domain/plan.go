package domain

// Plan описывает тариф аккаунта.
type Plan string

const (
	// PlanStarter — базовый тариф.
	PlanStarter Plan = "starter"
	// PlanBoost — расширенный тариф.
	PlanBoost Plan = "boost"
	// PlanPro — максимальный тариф.
	PlanPro Plan = "pro"
)

// priceToPlan сопоставляет идентификаторы цен провайдера тарифам.
// Таблица должна совпадать с каталогом в кабинете провайдера.
var priceToPlan = map[string]Plan{
	"price_1RdBgt08DTKTigBILvS2qp0D": PlanStarter,
	"price_1RdBhb08DTKTigBID2XBJCPH": PlanBoost,
	"price_1RdBiD08DTKTigBIynIPIVMP": PlanPro,
}

// PlanForPrice возвращает тариф по идентификатору цены.
// Для неизвестной цены возвращается starter.
func PlanForPrice(priceID string) Plan {
	if plan, ok := priceToPlan[priceID]; ok {
		return plan
	}
	return PlanStarter
}
