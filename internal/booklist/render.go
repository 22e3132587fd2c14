// internal/booklist/render.go
package booklist

import (
	"embed"
	"html/template"
	"io"
	"net/url"
	"strconv"

	"librarium/internal/catalog"
	"librarium/internal/session"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/*.html.tmpl"))

const (
	EmptyCatalogText  = "No books found!"
	EmptyBorrowedText = "No books issued!"
)

// Row is one rendered book.
type Row struct {
	ISBN              string
	Name              string
	Category          string
	Quantity          int
	AvailableQuantity int
	Price             string
	ViewURL           string
	EditURL           string
	DeleteURL         string
}

// PageSizeOption is one entry of the page size selector.
type PageSizeOption struct {
	Value    int
	Label    string
	Selected bool
}

// Page is the template model derived from a State and a Session.
type Page struct {
	IsAdmin      bool
	ShowBorrowed bool

	Rows     []Row
	Borrowed []Row
	HasBooks bool

	Total     int
	From, To  int
	HasPrev   bool
	HasNext   bool
	PrevPage  int
	NextPage  int
	PageSizes []PageSizeOption

	ModalOpen   bool
	PendingISBN string

	// FormToken is echoed by every form as the "form_token" field.
	FormToken string

	EmptyCatalogText  string
	EmptyBorrowedText string
}

// BuildPage derives the template model. It is a pure function of its inputs.
func BuildPage(st State, s session.Session) Page {
	visible := st.Visible()
	p := Page{
		IsAdmin:           s.IsAdmin,
		ShowBorrowed:      s.User != nil && !s.IsAdmin,
		Rows:              rows(visible),
		Borrowed:          rows(st.Borrowed),
		HasBooks:          len(st.Books) > 0,
		Total:             len(st.Books),
		PrevPage:          max(min(st.Page, PageCount(len(st.Books), st.PageSize))-1, 0),
		NextPage:          st.Page + 1,
		ModalOpen:         st.ModalOpen && st.PendingISBN != "",
		PendingISBN:       st.PendingISBN,
		EmptyCatalogText:  EmptyCatalogText,
		EmptyBorrowedText: EmptyBorrowedText,
	}

	if len(visible) > 0 {
		start := 0
		if st.PageSize > AllRows {
			start = max(st.Page, 0) * st.PageSize
		}
		p.From = start + 1
		p.To = start + len(visible)
	}
	p.HasPrev = st.PageSize > AllRows && st.Page > 0
	p.HasNext = st.PageSize > AllRows && st.Page+1 < PageCount(len(st.Books), st.PageSize)

	for _, size := range PageSizes {
		label := "All"
		if size != AllRows {
			label = strconv.Itoa(size)
		}
		p.PageSizes = append(p.PageSizes, PageSizeOption{Value: size, Label: label, Selected: size == st.PageSize})
	}
	return p
}

// Render writes the page for st as seen by s. formToken is embedded in
// every form.
func Render(w io.Writer, st State, s session.Session, formToken string) error {
	p := BuildPage(st, s)
	p.FormToken = formToken
	return pageTemplate.ExecuteTemplate(w, "page", p)
}

// FormatPrice renders a price the way the catalog shows it, e.g. ₹250.5.
func FormatPrice(p float64) string {
	return "₹" + strconv.FormatFloat(p, 'f', -1, 64)
}

func rows(books []catalog.Book) []Row {
	out := make([]Row, 0, len(books))
	for _, b := range books {
		escaped := url.PathEscape(b.ISBN)
		out = append(out, Row{
			ISBN:              b.ISBN,
			Name:              b.Name,
			Category:          b.Category,
			Quantity:          b.Quantity,
			AvailableQuantity: b.AvailableQuantity,
			Price:             FormatPrice(b.Price),
			ViewURL:           "/books/" + escaped,
			EditURL:           "/admin/books/" + escaped + "/edit",
			DeleteURL:         "/books/" + escaped + "/delete",
		})
	}
	return out
}
