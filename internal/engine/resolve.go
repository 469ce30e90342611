package engine

import "strings"

// resolvePath разрешает точечный путь относительно контекста выполнения.
//
// Первый сегмент выбирает пространство имён:
//
//	input.<...>      — путь внутри исходного входа плана
//	steps.<id>.<...> — путь внутри выхода шага <id>;
//	                   "steps.<id>" без хвоста — весь выход целиком
//	<иное>           — путь трактуется как путь внутрь входа
//
// Отсутствующий путь разрешается в nil; это не ошибка.
func resolvePath(path string, ectx *ExecutionContext) any {
	segs := strings.Split(path, ".")

	switch segs[0] {
	case "input":
		return lookup(ectx.Input, segs[1:])
	case "steps":
		if len(segs) < 2 {
			return nil
		}
		output, ok := ectx.StepOutputs[segs[1]]
		if !ok {
			return nil
		}
		return descend(output, segs[2:])
	default:
		return lookup(ectx.Input, segs)
	}
}

// lookup спускается по сегментам внутри карты.
func lookup(m map[string]any, segs []string) any {
	if len(segs) == 0 {
		return m
	}
	v, ok := m[segs[0]]
	if !ok {
		return nil
	}
	return descend(v, segs[1:])
}

// descend спускается по сегментам внутри произвольного значения.
// Спуск возможен только через map[string]any; всё остальное с
// непустым хвостом пути даёт nil.
func descend(v any, segs []string) any {
	for _, seg := range segs {
		m, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		v, ok = m[seg]
		if !ok {
			return nil
		}
	}
	return v
}
