package engine

import "strings"

// InterpolatePayload подставляет значения контекста в шаблон полезной
// нагрузки.
//
// Правила подстановки:
//   - строка, целиком имеющая вид "{{ path }}" (ведущие "{{", замыкающие
//     "}}", путь обрезается от пробелов), заменяется значением по пути —
//     значением любого типа, не его строковым представлением;
//   - строка, лишь содержащая плейсхолдер как подстроку ("x-{{ path }}"),
//     не меняется — частичной интерполяции нет;
//   - вложенные карты обходятся рекурсивно;
//   - массивы и значения прочих типов проходят без изменений.
//
// Пути разрешаются по тем же правилам, что в условных выражениях;
// неразрешимый путь даёт nil.
func InterpolatePayload(tpl map[string]any, ectx *ExecutionContext) map[string]any {
	out := make(map[string]any, len(tpl))
	for k, v := range tpl {
		out[k] = interpolateValue(v, ectx)
	}
	return out
}

func interpolateValue(v any, ectx *ExecutionContext) any {
	switch t := v.(type) {
	case string:
		if isPlaceholder(t) {
			return resolvePath(strings.TrimSpace(t[2:len(t)-2]), ectx)
		}
		return t
	case map[string]any:
		return InterpolatePayload(t, ectx)
	default:
		return v
	}
}

func isPlaceholder(s string) bool {
	return len(s) >= 4 && strings.HasPrefix(s, "{{") && strings.HasSuffix(s, "}}")
}
