package catalog

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

var ErrBadCatalog = errors.New("catalog: invalid catalog")

const sheetName = "catalog"

// Колонки листа каталога: одна строка на вариант выбора,
// для текстовых шагов и загрузок колонки варианта пустые.
var excelHeader = []any{
	"product_id", "product_title", "product_description",
	"step_id", "step_label", "step_kind", "required", "max_selections", "placeholder", "step_description",
	"option_id", "option_label", "price", "image_url", "option_description",
}

const minColumns = 6 // до step_kind включительно

// ReadExcel читает каталог из .xlsx (первый лист или лист "catalog").
// Порядок продуктов, шагов и вариантов — порядок строк в файле.
func ReadExcel(r io.Reader) ([]Product, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	for _, name := range f.GetSheetList() {
		if strings.EqualFold(name, sheetName) {
			sheet = name
			break
		}
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: no data rows", ErrBadCatalog)
	}
	if len(rows[0]) < minColumns {
		return nil, fmt.Errorf("%w: expected at least %d columns, got %d", ErrBadCatalog, minColumns, len(rows[0]))
	}

	var products []Product
	pIdx := map[string]int{}
	sIdx := map[string]map[string]int{}

	for i := 1; i < len(rows); i++ {
		row := rows[i]
		line := i + 1
		productID := cell(row, 0)
		stepID := cell(row, 3)
		if productID == "" && stepID == "" {
			continue // пустая строка
		}
		if productID == "" || stepID == "" {
			return nil, fmt.Errorf("%w: row %d: product_id and step_id are required", ErrBadCatalog, line)
		}

		pi, ok := pIdx[productID]
		if !ok {
			pi = len(products)
			pIdx[productID] = pi
			sIdx[productID] = map[string]int{}
			products = append(products, Product{ID: productID})
		}
		p := &products[pi]
		if p.Title == "" {
			p.Title = cell(row, 1)
		}
		if p.Description == "" {
			p.Description = cell(row, 2)
		}

		si, ok := sIdx[productID][stepID]
		if !ok {
			kind := StepKind(strings.ToLower(cell(row, 5)))
			if !kind.Valid() {
				return nil, fmt.Errorf("%w: row %d: unknown step_kind %q", ErrBadCatalog, line, cell(row, 5))
			}
			maxSel := 0
			if v := cell(row, 7); v != "" {
				n, err := strconv.Atoi(v)
				if err != nil || n < 0 {
					return nil, fmt.Errorf("%w: row %d: bad max_selections %q", ErrBadCatalog, line, v)
				}
				maxSel = n
			}
			si = len(p.Steps)
			sIdx[productID][stepID] = si
			p.Steps = append(p.Steps, Step{
				ID:            stepID,
				Label:         cell(row, 4),
				Kind:          kind,
				Required:      parseBool(cell(row, 6)),
				MaxSelections: maxSel,
				Placeholder:   cell(row, 8),
				Description:   cell(row, 9),
			})
		}
		s := &p.Steps[si]

		optionID := cell(row, 10)
		if optionID == "" {
			continue
		}
		price, err := ParseMoney(cell(row, 12))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrBadCatalog, line, err)
		}
		s.Options = append(s.Options, Option{
			ID:          optionID,
			Label:       cell(row, 11),
			Price:       price,
			ImageURL:    cell(row, 13),
			Description: cell(row, 14),
		})
	}

	if err := Validate(products); err != nil {
		return nil, err
	}
	return products, nil
}

// WriteExcel выгружает каталог в том же формате, что читает ReadExcel.
func WriteExcel(w io.Writer, products []Product) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheetName, "A1", &excelHeader); err != nil {
		return err
	}

	r := 2
	put := func(vals []any) error {
		addr, err := excelize.CoordinatesToCellName(1, r)
		if err != nil {
			return err
		}
		r++
		return f.SetSheetRow(sheetName, addr, &vals)
	}

	for _, p := range products {
		for _, s := range p.Steps {
			base := []any{
				p.ID, p.Title, p.Description,
				s.ID, s.Label, string(s.Kind), strconv.FormatBool(s.Required), s.MaxSelections, s.Placeholder, s.Description,
			}
			if len(s.Options) == 0 {
				if err := put(base); err != nil {
					return err
				}
				continue
			}
			for _, o := range s.Options {
				vals := append(append([]any{}, base...), o.ID, o.Label, o.Price.String(), o.ImageURL, o.Description)
				if err := put(vals); err != nil {
					return err
				}
			}
		}
	}

	return f.Write(w)
}

// Validate проверяет инварианты каталога: уникальные id, известные типы шагов,
// варианты только у select-шагов, неотрицательные цены, у продукта есть шаги.
func Validate(products []Product) error {
	if len(products) == 0 {
		return fmt.Errorf("%w: no products", ErrBadCatalog)
	}
	seen := map[string]bool{}
	for _, p := range products {
		if p.ID == "" {
			return fmt.Errorf("%w: empty product id", ErrBadCatalog)
		}
		if seen[p.ID] {
			return fmt.Errorf("%w: duplicate product %q", ErrBadCatalog, p.ID)
		}
		seen[p.ID] = true
		if len(p.Steps) == 0 {
			return fmt.Errorf("%w: product %q has no steps", ErrBadCatalog, p.ID)
		}

		steps := map[string]bool{}
		for _, s := range p.Steps {
			if steps[s.ID] {
				return fmt.Errorf("%w: duplicate step %q in product %q", ErrBadCatalog, s.ID, p.ID)
			}
			steps[s.ID] = true
			if !s.Kind.Valid() {
				return fmt.Errorf("%w: step %q: unknown kind %q", ErrBadCatalog, s.ID, s.Kind)
			}
			if s.Kind.HasOptions() && len(s.Options) == 0 {
				return fmt.Errorf("%w: step %q: select step without options", ErrBadCatalog, s.ID)
			}
			if !s.Kind.HasOptions() && len(s.Options) > 0 {
				return fmt.Errorf("%w: step %q: options on %s step", ErrBadCatalog, s.ID, s.Kind)
			}
			opts := map[string]bool{}
			for _, o := range s.Options {
				if o.ID == "" || opts[o.ID] {
					return fmt.Errorf("%w: step %q: empty or duplicate option id %q", ErrBadCatalog, s.ID, o.ID)
				}
				opts[o.ID] = true
				if o.Price < 0 {
					return fmt.Errorf("%w: option %q: negative price", ErrBadCatalog, o.ID)
				}
			}
		}
	}
	return nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "да", "y", "+":
		return true
	}
	return false
}
