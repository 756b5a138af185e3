package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"spendtrack/internal/middleware"
	"spendtrack/internal/storage"
	"spendtrack/internal/validate"
)

// dataTableTimeFormat matches the grid's expected timestamp rendering.
const dataTableTimeFormat = "01/02/2006 3:04 PM"

// CategoriesPage renders the categories grid shell; the rows come from
// LoadCategories.
func (h *Handlers) CategoriesPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, "categories.html", nil)
}

// categoryRow is one grid row in the data-table feed.
type categoryRow struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// dataTableResponse is the paginated-listing envelope. Draw is the client's
// request token echoed back verbatim so the client can discard stale
// responses; the server enforces no ordering itself.
type dataTableResponse struct {
	Data            any    `json:"data"`
	Draw            string `json:"draw"`
	RecordsTotal    int64  `json:"recordsTotal"`
	RecordsFiltered int64  `json:"recordsFiltered"`
}

// LoadCategories serves the JSON feed behind the categories grid.
func (h *Handlers) LoadCategories(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	p := parseDataTableParams(r)

	items, total, filtered, err := h.db.ListCategories(storage.CategoryListParams{
		UserID:   user.ID,
		Offset:   p.Start,
		Limit:    p.Length,
		Search:   p.Search,
		OrderBy:  p.OrderBy,
		OrderDir: p.OrderDir,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list categories")
		middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	rows := make([]categoryRow, 0, len(items))
	for _, c := range items {
		rows = append(rows, categoryRow{
			ID:        c.ID,
			Name:      c.Name,
			CreatedAt: c.CreatedAt.Format(dataTableTimeFormat),
			UpdatedAt: c.UpdatedAt.Format(dataTableTimeFormat),
		})
	}

	middleware.WriteJSON(w, http.StatusOK, dataTableResponse{
		Data:            rows,
		Draw:            p.Draw,
		RecordsTotal:    total,
		RecordsFiltered: filtered,
	})
}

// CreateCategory handles the create form submission.
func (h *Handlers) CreateCategory(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid form submission")
		return
	}

	form := validate.CategoryForm{Name: strings.TrimSpace(r.FormValue("name"))}
	if err := validate.Struct(form); err != nil {
		middleware.WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	user := GetUserFromContext(r)
	if _, err := h.db.CreateCategory(form.Name, user.ID); err != nil {
		h.log.Error().Err(err).Msg("Failed to create category")
		middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	http.Redirect(w, r, "/categories", http.StatusFound)
}

// GetCategory returns one category as a flat JSON object, or 404.
func (h *Handlers) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Category not found")
		return
	}

	category, err := h.db.GetCategory(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Category not found")
			return
		}
		h.log.Error().Err(err).Int64("id", id).Msg("Failed to get category")
		middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"id":   category.ID,
		"name": category.Name,
	})
}

// UpdateCategory renames a category, or 404 when it does not exist.
func (h *Handlers) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Category not found")
		return
	}

	if err := r.ParseForm(); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid form submission")
		return
	}

	form := validate.CategoryForm{Name: strings.TrimSpace(r.FormValue("name"))}
	if err := validate.Struct(form); err != nil {
		middleware.WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	category, err := h.db.GetCategory(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Category not found")
			return
		}
		h.log.Error().Err(err).Int64("id", id).Msg("Failed to get category")
		middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if _, err := h.db.UpdateCategoryName(category, form.Name); err != nil {
		h.log.Error().Err(err).Int64("id", id).Msg("Failed to update category")
		middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"id":   category.ID,
		"name": category.Name,
	})
}

// DeleteCategory removes a category.
func (h *Handlers) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Category not found")
		return
	}

	category, err := h.db.GetCategory(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Category not found")
			return
		}
		h.log.Error().Err(err).Int64("id", id).Msg("Failed to get category")
		middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := h.db.Delete(category); err != nil {
		h.log.Error().Err(err).Int64("id", id).Msg("Failed to delete category")
		middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// dataTableParams are the query parameters a DataTables client sends for
// one page load.
type dataTableParams struct {
	Draw     string
	Start    int
	Length   int
	Search   string
	OrderBy  string
	OrderDir string
}

// maxPageLength caps a single page of the grid feed.
const maxPageLength = 100

func parseDataTableParams(r *http.Request) dataTableParams {
	q := r.URL.Query()
	p := dataTableParams{
		Draw:   q.Get("draw"),
		Search: q.Get("search[value]"),
	}

	p.Start, _ = strconv.Atoi(q.Get("start"))
	if p.Start < 0 {
		p.Start = 0
	}
	p.Length, _ = strconv.Atoi(q.Get("length"))
	if p.Length <= 0 {
		p.Length = 10
	}
	if p.Length > maxPageLength {
		p.Length = maxPageLength
	}

	// DataTables identifies the sort column by index; the column's data
	// field carries its name.
	if col := q.Get("order[0][column]"); col != "" {
		p.OrderBy = q.Get("columns[" + col + "][data]")
		p.OrderDir = q.Get("order[0][dir]")
	}
	return p
}
