package normalize

// Container keys under which providers wrap their actual row list, checked
// in order. OutBlock_1/OutBlock_2 are the KRX OpenAPI envelope names.
var containerKeys = []string{"OutBlock_1", "OutBlock_2", "output", "outputs", "result", "results", "items", "data", "list"}

// ExtractRows unwraps an arbitrarily-nested provider payload into its row
// list. It handles a bare list, a list under any known container key, a list
// nested one level deeper, and finally falls back to scanning every value.
// A flat scalar-only record is treated as a single row.
func ExtractRows(payload any) []Row {
	switch v := payload.(type) {
	case nil:
		return nil
	case []Row:
		return v
	case []map[string]any:
		rows := make([]Row, 0, len(v))
		for _, r := range v {
			rows = append(rows, Row(r))
		}
		return rows
	case []any:
		return rowsFromList(v)
	case Row:
		return extractFromMap(map[string]any(v))
	case map[string]any:
		return extractFromMap(v)
	}
	return nil
}

func extractFromMap(payload map[string]any) []Row {
	for _, key := range containerKeys {
		switch value := payload[key].(type) {
		case []any:
			return rowsFromList(value)
		case map[string]any:
			for _, nested := range value {
				if list, ok := nested.([]any); ok {
					return rowsFromList(list)
				}
			}
		}
	}

	// Fallback: any value holding a list of records.
	for _, value := range payload {
		if list, ok := value.([]any); ok && len(list) > 0 {
			if _, isRecord := list[0].(map[string]any); isRecord {
				return rowsFromList(list)
			}
		}
	}

	// A flat record with only scalar values is itself the single row.
	if len(payload) == 0 {
		return nil
	}
	for _, value := range payload {
		switch value.(type) {
		case map[string]any, []any:
			return nil
		}
	}
	return []Row{Row(payload)}
}

func rowsFromList(list []any) []Row {
	var rows []Row
	for _, item := range list {
		if record, ok := item.(map[string]any); ok {
			rows = append(rows, Row(record))
		}
	}
	return rows
}
