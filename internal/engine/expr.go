package engine

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Операторы сравнения. Двухсимвольные идут первыми: при совпадении
// позиции ">=" должен победить ">".
var comparisonOps = []string{">=", "<=", "==", "!=", ">", "<"}

// EvaluateExpression вычисляет одно бинарное сравнение вида
//
//	<путь> <оператор> <литерал>
//
// где оператор ∈ {==, !=, >, <, >=, <=}. Композиции (and/or) нет —
// одно сравнение на condition-шаг.
//
// Операторы порядка приводят обе стороны к числу; неприводимое значение
// делает сравнение ложным. Операторы равенства сравнивают разрешённые
// значения как есть (числа — по значению, без различия видов).
//
// Литерал: true/false/null, целые и десятичные числа, строки в одинарных
// или двойных кавычках; всё прочее — строка буквально.
func EvaluateExpression(expr string, ectx *ExecutionContext) (bool, error) {
	op, opIdx := findOperator(expr)
	if opIdx < 0 {
		return false, fmt.Errorf("%w: no comparison operator in %q", ErrInvalidExpression, expr)
	}

	rawPath := strings.TrimSpace(expr[:opIdx])
	rawLit := strings.TrimSpace(expr[opIdx+len(op):])
	if rawPath == "" || rawLit == "" {
		return false, fmt.Errorf("%w: %q", ErrInvalidExpression, expr)
	}

	left := resolvePath(rawPath, ectx)
	right := parseLiteral(rawLit)

	switch op {
	case "==":
		return equalValues(left, right), nil
	case "!=":
		return !equalValues(left, right), nil
	}

	lf, lok := toNumber(left)
	rf, rok := toNumber(right)
	if !lok || !rok {
		return false, nil
	}

	switch op {
	case ">":
		return lf > rf, nil
	case "<":
		return lf < rf, nil
	case ">=":
		return lf >= rf, nil
	default: // "<="
		return lf <= rf, nil
	}
}

// findOperator ищет самое левое вхождение оператора сравнения.
func findOperator(expr string) (string, int) {
	best := ""
	bestIdx := -1
	for _, op := range comparisonOps {
		idx := strings.Index(expr, op)
		if idx < 0 {
			continue
		}
		if bestIdx == -1 || idx < bestIdx {
			best, bestIdx = op, idx
		}
	}
	return best, bestIdx
}

// parseLiteral разбирает правую сторону сравнения.
func parseLiteral(raw string) any {
	switch raw {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}

	if len(raw) >= 2 {
		first, last := raw[0], raw[len(raw)-1]
		if (first == '\'' && last == '\'') || (first == '"' && last == '"') {
			return raw[1 : len(raw)-1]
		}
	}

	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}

	return raw
}

// equalValues сравнивает разрешённые значения как есть, без приведения
// типов. Единственное послабление — два числа сравниваются по значению
// независимо от конкретного вида: у исходной платформы один числовой
// тип, и литерал 150 обязан совпасть и с int(150), и с float64(150).
// Остальное сравнивается глубоко (== на интерфейсах паникует для карт
// и срезов).
func equalValues(a, b any) bool {
	af, aok := numericValue(a)
	bf, bok := numericValue(b)
	if aok && bok {
		return af == bf
	}
	return reflect.DeepEqual(a, b)
}

// numericValue распознаёт собственно числовые значения.
func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// toNumber — снисходительное приведение к числу для операторов порядка.
// Поверх числовых видов принимает булево значение (1/0) и строку через
// ParseFloat. nil и всё прочее числом не являются.
func toNumber(v any) (float64, bool) {
	if f, ok := numericValue(v); ok {
		return f, true
	}
	switch n := v.(type) {
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
