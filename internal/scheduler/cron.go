package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shaiso/Conductor/internal/domain"
)

// cronParser — парсер cron-выражений (стандартные 5 полей).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// CalculateNextDue вычисляет следующее время выполнения для schedule
// с учётом его timezone. Для cron-расписаний — ближайшее срабатывание
// выражения, для интервальных — from + IntervalSec.
func CalculateNextDue(sched *domain.Schedule, from time.Time) (time.Time, error) {
	loc, err := time.LoadLocation(sched.Timezone)
	if err != nil {
		// Fallback на UTC если timezone невалидный
		loc = time.UTC
	}

	fromInTz := from.In(loc)

	switch {
	case sched.IsCron():
		expr, err := cronParser.Parse(sched.CronExpr)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse cron expression %q: %w", sched.CronExpr, err)
		}
		// Храним в БД в UTC
		return expr.Next(fromInTz).UTC(), nil

	case sched.IsInterval():
		next := fromInTz.Add(time.Duration(sched.IntervalSec) * time.Second)
		return next.UTC(), nil

	default:
		return time.Time{}, fmt.Errorf("schedule has neither cron_expr nor interval_sec")
	}
}

// ValidateCronExpr проверяет валидность cron-выражения.
func ValidateCronExpr(cronExpr string) error {
	if _, err := cronParser.Parse(cronExpr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}
	return nil
}

// CalculateInitialNextDue вычисляет первое время выполнения для нового
// schedule. Используется при создании schedule через API.
func CalculateInitialNextDue(sched *domain.Schedule) (time.Time, error) {
	return CalculateNextDue(sched, time.Now())
}
