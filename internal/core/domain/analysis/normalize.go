// internal/core/domain/analysis/normalize.go
package analysis

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// ParseResult нормализует сырой ответ внешней модели и валидирует его
// в Result. Любая ошибка означает непригодность ответа - вызывающая
// сторона обязана откатиться на детерминированную эвристику.
//
// Правила нормализации:
//   - symbols задан словарем "символ -> данные": конвертируется в список
//     записей, каждая получает свой ключ как поле symbol;
//   - risks задан одиночной строкой: оборачивается в список из одного
//     элемента;
//   - risks отсутствует: подставляется пустой список.
func ParseResult(payload map[string]interface{}) (*Result, error) {
	if payload == nil {
		return nil, fmt.Errorf("empty payload")
	}

	normalized := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		normalized[k] = v
	}

	symbols, err := normalizeSymbols(normalized["symbols"])
	if err != nil {
		return nil, err
	}
	normalized["symbols"] = symbols
	normalized["risks"] = normalizeRisks(normalized["risks"])

	data, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode payload: %w", err)
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("payload does not match result schema: %w", err)
	}

	if err := validateResult(&result); err != nil {
		return nil, err
	}

	if result.GeneratedAt.IsZero() {
		result.GeneratedAt = time.Now().UTC()
	}
	if result.Risks == nil {
		result.Risks = []string{}
	}

	return &result, nil
}

// normalizeSymbols приводит symbols к списку записей
func normalizeSymbols(raw interface{}) ([]interface{}, error) {
	switch v := raw.(type) {
	case []interface{}:
		for _, item := range v {
			record, ok := item.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("symbol entry is not an object")
			}
			record["risks"] = normalizeRisks(record["risks"])
		}
		return v, nil

	case map[string]interface{}:
		// Словарь "символ -> данные" конвертируем в список.
		// Ключи сортируем для воспроизводимого порядка.
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		list := make([]interface{}, 0, len(v))
		for _, key := range keys {
			record, ok := v[key].(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("symbol entry %q is not an object", key)
			}

			merged := make(map[string]interface{}, len(record)+1)
			for rk, rv := range record {
				merged[rk] = rv
			}
			merged["symbol"] = key
			merged["risks"] = normalizeRisks(merged["risks"])
			list = append(list, merged)
		}
		return list, nil

	case nil:
		return nil, fmt.Errorf("missing symbols")

	default:
		return nil, fmt.Errorf("symbols must be a list or an object, got %T", raw)
	}
}

// normalizeRisks приводит risks к списку строк
func normalizeRisks(raw interface{}) interface{} {
	switch v := raw.(type) {
	case string:
		return []interface{}{v}
	case nil:
		return []interface{}{}
	default:
		return raw
	}
}

// validateResult проверяет результат после нормализации
func validateResult(result *Result) error {
	if result.Summary == "" {
		return fmt.Errorf("missing summary")
	}

	if len(result.Symbols) == 0 {
		return fmt.Errorf("missing symbols")
	}

	for i, sa := range result.Symbols {
		if sa.Symbol == "" {
			return fmt.Errorf("symbol entry %d: missing symbol", i)
		}
		if sa.Bias == "" {
			return fmt.Errorf("symbol entry %d (%s): missing bias", i, sa.Symbol)
		}
		if sa.Confidence < 0.0 || sa.Confidence > 1.0 {
			return fmt.Errorf("symbol entry %d (%s): confidence %.4f out of [0, 1]", i, sa.Symbol, sa.Confidence)
		}
	}

	return nil
}
