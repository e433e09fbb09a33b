package borica

import "strings"

type localized struct {
	en string
	bg string
}

var rcMessages = map[string]localized{
	"00":  {"Approved", "Успешна транзакция"},
	"01":  {"Refer to card issuer", "Обърнете се към издателя на картата"},
	"04":  {"Pick up card", "Задържане на картата"},
	"05":  {"Do not honour", "Отказана транзакция"},
	"06":  {"Error", "Грешка"},
	"12":  {"Invalid transaction", "Невалидна транзакция"},
	"13":  {"Invalid amount", "Невалидна сума"},
	"14":  {"No such card", "Невалидна карта"},
	"15":  {"No such issuer", "Несъществуващ издател"},
	"17":  {"Customer cancellation", "Отказ от клиента"},
	"30":  {"Format error", "Грешка във формата"},
	"43":  {"Stolen card", "Открадната карта"},
	"51":  {"Insufficient funds", "Недостатъчна наличност"},
	"54":  {"Expired card", "Изтекла карта"},
	"55":  {"Incorrect PIN", "Грешен ПИН"},
	"57":  {"Transaction not permitted to card", "Транзакцията не е разрешена за картата"},
	"58":  {"Transaction not permitted to terminal", "Транзакцията не е разрешена за терминала"},
	"59":  {"Suspected fraud", "Съмнение за измама"},
	"61":  {"Exceeds withdrawal limit", "Надвишен лимит"},
	"62":  {"Restricted card", "Ограничена карта"},
	"65":  {"Exceeds withdrawal frequency", "Надвишен брой транзакции"},
	"91":  {"Issuer unavailable", "Издателят не е достъпен"},
	"94":  {"Duplicate transaction", "Дублирана транзакция"},
	"96":  {"System malfunction", "Системна грешка"},
	"-1":  {"A mandatory request field is missing", "Липсва задължително поле"},
	"-2":  {"Request rejected by the gateway", "Заявката е отхвърлена"},
	"-4":  {"Server is temporarily unavailable", "Сървърът е временно недостъпен"},
	"-11": {"Field has invalid length", "Поле с невалидна дължина"},
	"-12": {"Field has invalid format", "Поле с невалиден формат"},
	"-15": {"Invalid request signature", "Невалиден подпис на заявката"},
	"-17": {"Access denied", "Отказан достъп"},
	"-19": {"Cardholder authentication failed", "Неуспешна автентикация на картодържателя"},
	"-20": {"Request timestamp outside the allowed window", "Невалидно време на заявката"},
	"-24": {"Terminal is not configured", "Терминалът не е конфигуриран"},
	"-25": {"Cancelled by the cardholder", "Прекратена от картодържателя"},
	"-27": {"Invalid merchant name", "Невалидно име на търговеца"},
	"-32": {"Duplicate declined transaction", "Дублирана отказана транзакция"},
	"-33": {"Duplicate transaction", "Дублирана транзакция"},
	"-40": {"Cardholder did not complete the payment", "Картодържателят не завърши плащането"},
}

var fallback = localized{"Payment was not completed", "Плащането не беше извършено"}

// Message returns a human-readable reason for rc in lang ("BG" or "EN").
func Message(rc, lang string) string {
	m, ok := rcMessages[strings.TrimSpace(rc)]
	if !ok {
		m = fallback
	}
	if strings.EqualFold(lang, "BG") {
		return m.bg
	}
	return m.en
}
