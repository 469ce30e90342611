// Package cli реализует инструмент командной строки Conductor.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с Conductor API.
// Работает через HTTP, не импортирует внутренние пакеты системы.
// CLI используется для управления plans, executions и schedules.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Conductor API. Инкапсулирует все HTTP-запросы,
// парсинг ответов (dataResponse, listResponse, errorResponse)
// и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	plans, err := client.ListPlans(cli.ListPlansOpts{})
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: conductor plan list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - plan: list, create, show, update, delete
//   - execution: list, start, submit, show, steps
//   - schedule: list, create, show, update, delete, enable, disable
//
// Каждая группа создаётся через фабричную функцию (NewPlanCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
