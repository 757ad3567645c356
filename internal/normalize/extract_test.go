package normalize

import "testing"

func TestExtractRows(t *testing.T) {
	t.Run("well-known container key", func(t *testing.T) {
		payload := map[string]any{
			"OutBlock_1": []any{
				map[string]any{"ISU_CD": "A005930"},
				map[string]any{"ISU_CD": "A000660"},
			},
		}
		rows := ExtractRows(payload)
		if len(rows) != 2 {
			t.Fatalf("got %d rows, want 2", len(rows))
		}
		if rows[0]["ISU_CD"] != "A005930" {
			t.Errorf("first row = %v", rows[0])
		}
	})

	t.Run("nested container", func(t *testing.T) {
		payload := map[string]any{
			"result": map[string]any{
				"output": []any{map[string]any{"k": "v"}},
			},
		}
		rows := ExtractRows(payload)
		if len(rows) != 1 || rows[0]["k"] != "v" {
			t.Fatalf("got %v", rows)
		}
	})

	t.Run("bare list", func(t *testing.T) {
		payload := []any{map[string]any{"a": 1}, map[string]any{"b": 2}}
		if rows := ExtractRows(payload); len(rows) != 2 {
			t.Fatalf("got %d rows, want 2", len(rows))
		}
	})

	t.Run("single flat record", func(t *testing.T) {
		payload := map[string]any{"ISU_CD": "A005930", "MKT_NM": "KOSPI"}
		rows := ExtractRows(payload)
		if len(rows) != 1 {
			t.Fatalf("got %d rows, want 1", len(rows))
		}
	})

	t.Run("fallback to first list of maps", func(t *testing.T) {
		payload := map[string]any{
			"unexpected_key": []any{map[string]any{"x": 1}},
		}
		if rows := ExtractRows(payload); len(rows) != 1 {
			t.Fatalf("got %d rows, want 1", len(rows))
		}
	})

	t.Run("nothing extractable", func(t *testing.T) {
		if rows := ExtractRows("not a payload"); rows != nil {
			t.Fatalf("got %v, want nil", rows)
		}
		if rows := ExtractRows(nil); rows != nil {
			t.Fatalf("got %v, want nil", rows)
		}
	})
}
