package catalog

type StepKind string

const (
	KindText        StepKind = "text"         // свободный текст
	KindUpload      StepKind = "upload"       // загрузка файла (логотип, макет)
	KindSelect      StepKind = "select"       // выбор из списка
	KindImageSelect StepKind = "image_select" // выбор из списка с картинками
)

func (k StepKind) Valid() bool {
	switch k {
	case KindText, KindUpload, KindSelect, KindImageSelect:
		return true
	}
	return false
}

// HasOptions true для шагов с вариантами выбора.
func (k StepKind) HasOptions() bool {
	return k == KindSelect || k == KindImageSelect
}

// Product — опция стенда (пакет), настраивается своей последовательностью шагов.
type Product struct {
	ID          string
	Title       string
	Description string
	Steps       []Step
}

type Step struct {
	ID            string
	Label         string
	Kind          StepKind
	Required      bool
	MaxSelections int // > 1 — множественный выбор
	Placeholder   string
	Description   string
	Options       []Option
}

type Option struct {
	ID          string
	Label       string
	Price       Money
	ImageURL    string
	Description string
}

func (s Step) Multi() bool { return s.MaxSelections > 1 }

func (s Step) Option(id string) (Option, bool) {
	for _, o := range s.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

func (p Product) Step(id string) (Step, bool) {
	for _, s := range p.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return Step{}, false
}

// Find ищет продукт по id в наборе.
func Find(products []Product, id string) (Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// TotalSteps — сколько всего шагов во всех продуктах.
func TotalSteps(products []Product) int {
	n := 0
	for _, p := range products {
		n += len(p.Steps)
	}
	return n
}
