package render

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"yqhp/bitable-doc/internal/schema"
)

const (
	maxSheetName     = 31
	defaultSheetName = "字段表"
)

var fieldHeader = []any{"字段名称", "字段 ID", "字段类型", "是否AI字段", "AI配置", "业务描述", "完整配置/公式"}

var sheetNameReplacer = strings.NewReplacer(
	":", "_", `\`, "_", "/", "_", "?", "_", "*", "_", "[", "(", "]", ")",
)

// FieldWorkbook builds the field catalog workbook, one sheet per table.
func FieldWorkbook(c schema.Catalog) (*excelize.File, error) {
	f := excelize.NewFile()
	first := f.GetSheetName(0)

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("创建表头样式失败: %w", err)
	}

	used := make(map[string]bool)
	for i, t := range c.Tables {
		name := uniqueSheetName(t.Name, used)
		if i == 0 {
			if err := f.SetSheetName(first, name); err != nil {
				f.Close()
				return nil, fmt.Errorf("重命名工作表失败: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("创建工作表失败: %w", err)
		}
		if err := writeFieldSheet(f, name, t, bold); err != nil {
			f.Close()
			return nil, err
		}
	}
	if len(c.Tables) == 0 {
		if err := f.SetSheetName(first, defaultSheetName); err != nil {
			f.Close()
			return nil, fmt.Errorf("重命名工作表失败: %w", err)
		}
		if err := f.SetSheetRow(defaultSheetName, "A1", &fieldHeader); err != nil {
			f.Close()
			return nil, fmt.Errorf("写入表头失败: %w", err)
		}
	}
	return f, nil
}

func writeFieldSheet(f *excelize.File, sheet string, t schema.TableFields, headerStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", &fieldHeader); err != nil {
		return fmt.Errorf("写入表头失败: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", "G1", headerStyle); err != nil {
		return fmt.Errorf("设置表头样式失败: %w", err)
	}
	for i, fld := range t.Fields {
		addr, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{fld.Name, fld.ID, fld.TypeName, aiMarker(fld.AI), fld.AIDescription, fld.Description, fld.Config}
		if err := f.SetSheetRow(sheet, addr, &row); err != nil {
			return fmt.Errorf("写入字段行失败: %w", err)
		}
	}
	if err := f.SetColWidth(sheet, "A", "F", 20); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "G", "G", 80)
}

// uniqueSheetName makes a valid, unused sheet name from a table name.
func uniqueSheetName(name string, used map[string]bool) string {
	base := strings.Trim(sheetNameReplacer.Replace(name), "'")
	if base == "" {
		base = defaultSheetName
	}
	candidate := clip(base, maxSheetName)
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf("(%d)", n)
		candidate = clip(base, maxSheetName-utf8.RuneCountInString(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func clip(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

// WriteFieldWorkbook writes the catalog workbook to w.
func WriteFieldWorkbook(w io.Writer, c schema.Catalog) error {
	f, err := FieldWorkbook(c)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("写入工作簿失败: %w", err)
	}
	return nil
}

// SaveFieldWorkbook writes the catalog workbook to path, creating parent directories.
func SaveFieldWorkbook(path string, c schema.Catalog) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := FieldWorkbook(c)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("保存工作簿失败: %w", err)
	}
	return nil
}
