package api

import (
	"net/http"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys. Russian is the default locale; English is served when the
// client prefers it through Accept-Language.
const (
	msgLoginRequired     = "login_required"
	msgForbidden         = "forbidden"
	msgBadRequest        = "bad_request"
	msgInvalidLogin      = "invalid_login"
	msgTooManyAttempts   = "too_many_attempts"
	msgInternal          = "internal"
	msgTankNumberInvalid = "tank_number_invalid"
	msgIntakeInvalid     = "intake_volume_invalid"
	msgRefuelInvalid     = "refuel_volume_invalid"
	msgPagingInvalid     = "paging_invalid"
	msgTankNotFound      = "tank_not_found"
	msgStationNotFound   = "station_not_found"
	msgPumpNotFound      = "pump_not_found"
	msgUserNotFound      = "user_not_found"
	msgConflict          = "conflict"
	msgInvalidEntity     = "invalid_entity"
)

var supportedLanguages = []language.Tag{language.Russian, language.English}

var languageMatcher = language.NewMatcher(supportedLanguages)

var messages = func() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.Russian))
	set := func(key, ru, en string) {
		b.SetString(language.Russian, key, ru) //nolint:errcheck
		b.SetString(language.English, key, en) //nolint:errcheck
	}
	set(msgLoginRequired, "Необходимо войти в систему.", "Please log in.")
	set(msgForbidden, "Недостаточно прав для выполнения операции.", "You are not allowed to perform this operation.")
	set(msgBadRequest, "Нарушена целостность запроса.", "Malformed request.")
	set(msgInvalidLogin, "Неправильный адрес электронной почты или пароль.", "Invalid email or password.")
	set(msgTooManyAttempts, "Слишком много неудачных попыток, повторите позже.", "Too many failed attempts, try again later.")
	set(msgInternal, "Внутренняя ошибка сервера.", "Internal server error.")
	set(msgTankNumberInvalid, "Номер резервуара должен быть положительным числом.", "Tank number must be a positive number.")
	set(msgIntakeInvalid, "Объем принятого топлива должен быть положительным числом.", "Intake volume must be a positive number.")
	set(msgRefuelInvalid, "Объем заправки должен быть положительным числом.", "Refuel volume must be a positive number.")
	set(msgPagingInvalid, "Параметр first должен быть неотрицательным, number положительным.", "first must be non-negative and number positive.")
	set(msgTankNotFound, "Не найден резервуар [номер=%v].", "Fuel tank not found [number=%v].")
	set(msgStationNotFound, "Не найдена АЗС [id=%v].", "Fuel station not found [id=%v].")
	set(msgPumpNotFound, "Не найден контроллер ТРК [id=%v].", "Pump controller not found [id=%v].")
	set(msgUserNotFound, "Не найден пользователь.", "User not found.")
	set(msgConflict, "Объект с такими данными уже существует.", "An object with these attributes already exists.")
	set(msgInvalidEntity, "Некорректные данные объекта.", "Invalid object data.")
	return b
}()

// printerFor selects the message printer for the request's preferred language.
func printerFor(r *http.Request) *message.Printer {
	tags, _, _ := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	_, idx, _ := languageMatcher.Match(tags...)
	return message.NewPrinter(supportedLanguages[idx], message.Catalog(messages))
}

// localize renders key in the request's language.
func localize(r *http.Request, key string, args ...any) string {
	return printerFor(r).Sprintf(key, args...)
}
