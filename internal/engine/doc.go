// Package engine содержит движок выполнения оркестрационных планов.
//
// Включает:
//   - executor.go     — основной цикл: готовность шагов, deadlock-break,
//     агрегация результата
//   - steps.go        — диспетчеризация шага по типу и обработчики
//     (action/condition/parallel/delay/approval)
//   - compensation.go — постановка компенсационных заданий в обратном
//     порядке объявления шагов
//   - expr.go         — вычисление условных выражений
//   - template.go     — подстановка "{{ path }}" в полезные нагрузки
//   - context.go      — контекст выполнения (вход, выходы шагов, abort)
//   - validate.go     — проверка формы плана на границе сервиса
//
// Движок работает синхронно внутри одного вызова ExecutePlan: шаги
// очередной готовой партии выполняются последовательно в порядке
// объявления, конкурентность есть только внутри parallel-шага. Провал
// шага — не исключительная ситуация: он фиксируется в StepResult, а
// наружу ExecutePlan всегда возвращает агрегированный результат.
package engine
