// Package schedule содержит чистую арифметику дат: правило дедлайна для
// отказов от питания и определение текущего окна приёма пищи.
package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/mmeshcher/messhall-system/internal/model"
)

// ErrCutoffViolation возвращается, когда запрошенная дата отказа раньше
// минимально допустимой по правилу дедлайна.
var ErrCutoffViolation = errors.New("mess cut violates cutoff rule")

// MaxCutDays — максимальная длительность одного отказа от питания.
const MaxCutDays = 30

// TimeOfDay — время суток без привязки к дате.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay разбирает строку вида "23:00".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var t TimeOfDay
	if _, err := fmt.Sscanf(s, "%d:%d", &t.Hour, &t.Minute); err != nil {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return TimeOfDay{}, fmt.Errorf("time of day %q out of range", s)
	}
	return t, nil
}

// Minutes возвращает время суток в минутах от полуночи.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// Window — интервал времени суток одного приёма пищи, границы включительно.
type Window struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Contains сообщает, попадает ли время суток в окно.
func (w Window) Contains(t TimeOfDay) bool {
	m := t.Minutes()
	return w.Start.Minutes() <= m && m <= w.End.Minutes()
}

// DateOf обрезает момент времени до даты в его локации.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EarliestCutDate возвращает самую раннюю дату, на которую ещё можно
// оформить отказ от питания. До дедлайна это завтра; после — послезавтра,
// потому что завтрашние закупки уже сделаны.
func EarliestCutDate(now time.Time, cutoff TimeOfDay) time.Time {
	days := 1
	nowOfDay := TimeOfDay{Hour: now.Hour(), Minute: now.Minute()}
	if nowOfDay.Minutes() >= cutoff.Minutes() {
		days = 2
	}
	return DateOf(now).AddDate(0, 0, days)
}

// ValidateCutRange проверяет диапазон дат отказа относительно правила
// дедлайна. Перевёрнутый диапазон и начало раньше минимально допустимой
// даты — одно и то же нарушение ErrCutoffViolation.
func ValidateCutRange(fromDate, toDate, now time.Time, cutoff TimeOfDay) error {
	from := DateOf(fromDate)
	to := DateOf(toDate)

	if from.After(to) {
		return fmt.Errorf("%w: from date %s is after to date %s", ErrCutoffViolation, from.Format("2006-01-02"), to.Format("2006-01-02"))
	}

	min := EarliestCutDate(now, cutoff)
	if from.Before(min) {
		return fmt.Errorf("%w: minimum allowed date is %s", ErrCutoffViolation, min.Format("2006-01-02"))
	}

	if days := int(to.Sub(from).Hours()/24) + 1; days > MaxCutDays {
		return fmt.Errorf("mess cut of %d days exceeds maximum of %d", days, MaxCutDays)
	}

	return nil
}

// CurrentMealWindow возвращает приём пищи, в окно которого попадает текущее
// время суток. Результат используется терминалом для подсказки; при
// сканировании заявленный приём пищи не сверяется с окном.
func CurrentMealWindow(now time.Time, windows map[model.Meal]Window) (model.Meal, bool) {
	t := TimeOfDay{Hour: now.Hour(), Minute: now.Minute()}
	for _, meal := range []model.Meal{model.MealBreakfast, model.MealLunch, model.MealDinner} {
		w, ok := windows[meal]
		if !ok {
			continue
		}
		if w.Contains(t) {
			return meal, true
		}
	}
	return "", false
}
