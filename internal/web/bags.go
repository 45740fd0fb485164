package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/model"
)

// BagForm carries raw form values back into a re-rendered form.
type BagForm struct {
	Type     string
	Color    string
	Material string
	Quantity string
}

func readBagForm(r *http.Request) BagForm {
	return BagForm{
		Type:     strings.TrimSpace(r.FormValue("type")),
		Color:    strings.TrimSpace(r.FormValue("color")),
		Material: strings.TrimSpace(r.FormValue("material")),
		Quantity: strings.TrimSpace(r.FormValue("quantity")),
	}
}

func formOf(bag *model.Bag) BagForm {
	return BagForm{
		Type:     bag.Type,
		Color:    bag.Color,
		Material: bag.Material,
		Quantity: strconv.Itoa(bag.Quantity),
	}
}

func parseQuantity(raw string) (int, error) {
	if raw == "" {
		return 0, &model.ValidationError{Field: "quantity", Message: "required"}
	}
	q, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &model.ValidationError{Field: "quantity", Message: "must be an integer"}
	}
	return q, nil
}

type bagsPage struct {
	PageData
	Bags       []model.Bag
	Summary    model.Summary
	Form       BagForm
	Vocabulary Vocabulary
}

type bagEditPage struct {
	PageData
	Bag        *model.Bag
	Form       BagForm
	Vocabulary Vocabulary
}

// BagsPage handles GET /.
func (s *Server) BagsPage(w http.ResponseWriter, r *http.Request) {
	s.renderBags(w, r, http.StatusOK, BagForm{}, "")
}

// renderBags re-queries the list so the page always shows the stored state.
func (s *Server) renderBags(w http.ResponseWriter, r *http.Request, status int, form BagForm, message string) {
	data := &bagsPage{
		PageData:   s.pageDataWithError(r, "Bags", message),
		Form:       form,
		Vocabulary: vocabulary,
	}

	bags, err := s.Bags.ListBags(r.Context())
	if err != nil {
		slog.Error("failed to list bags", "error", err)
		status = http.StatusInternalServerError
		data.Error = "Could not load bags."
	}
	data.Bags = bags
	data.Summary = model.Summarize(bags)

	s.Templates.Render(w, status, "bags.html", data)
}

// BagCreateSubmit handles POST /bags.
func (s *Server) BagCreateSubmit(w http.ResponseWriter, r *http.Request) {
	form := readBagForm(r)

	quantity, err := parseQuantity(form.Quantity)
	in := model.CreateBagInput{Type: form.Type, Color: form.Color, Material: form.Material, Quantity: quantity}
	if err == nil {
		err = in.Validate()
	}
	if err != nil {
		s.renderBags(w, r, http.StatusBadRequest, form, validationMessage(err))
		return
	}

	bag, err := s.Bags.CreateBag(r.Context(), in)
	if err != nil {
		slog.Error("failed to create bag", "error", err)
		s.renderBags(w, r, http.StatusInternalServerError, form, "Could not save the bag.")
		return
	}

	slog.Info("bag created", "id", bag.ID, "type", bag.Type)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// BagEditPage handles GET /bags/{id}.
func (s *Server) BagEditPage(w http.ResponseWriter, r *http.Request) {
	bag, ok := s.loadBag(w, r)
	if !ok {
		return
	}

	s.Templates.Render(w, http.StatusOK, "bag_edit.html", &bagEditPage{
		PageData:   s.pageData(r, "Edit bag #"+strconv.FormatInt(bag.ID, 10)),
		Bag:        bag,
		Form:       formOf(bag),
		Vocabulary: vocabulary,
	})
}

// BagUpdateSubmit handles POST /bags/{id}. Only fields that differ from the
// stored bag are sent as the patch.
func (s *Server) BagUpdateSubmit(w http.ResponseWriter, r *http.Request) {
	bag, ok := s.loadBag(w, r)
	if !ok {
		return
	}

	form := readBagForm(r)
	in := model.UpdateBagInput{ID: bag.ID}
	if form.Type != bag.Type {
		in.Type = model.Some(form.Type)
	}
	if form.Color != bag.Color {
		in.Color = model.Some(form.Color)
	}
	if form.Material != bag.Material {
		in.Material = model.Some(form.Material)
	}

	quantity, err := parseQuantity(form.Quantity)
	if err == nil && quantity != bag.Quantity {
		in.Quantity = model.Some(quantity)
	}
	if err == nil {
		err = in.Validate()
	}
	if err != nil {
		s.Templates.Render(w, http.StatusBadRequest, "bag_edit.html", &bagEditPage{
			PageData:   s.pageDataWithError(r, "Edit bag #"+strconv.FormatInt(bag.ID, 10), validationMessage(err)),
			Bag:        bag,
			Form:       form,
			Vocabulary: vocabulary,
		})
		return
	}

	updated, err := s.Bags.UpdateBag(r.Context(), in)
	if err != nil {
		slog.Error("failed to update bag", "id", bag.ID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if updated == nil {
		http.Error(w, "bag not found", http.StatusNotFound)
		return
	}

	if !in.Empty() {
		slog.Info("bag updated", "id", bag.ID)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// BagDeleteSubmit handles POST /bags/{id}/delete.
func (s *Server) BagDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	deleted, err := s.Bags.DeleteBag(r.Context(), id)
	if err != nil {
		slog.Error("failed to delete bag", "id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if deleted {
		slog.Info("bag deleted", "id", id)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// loadBag resolves the {id} path value. It writes the error response and
// returns false when the bag cannot be shown.
func (s *Server) loadBag(w http.ResponseWriter, r *http.Request) (*model.Bag, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return nil, false
	}

	bag, err := s.Bags.GetBag(r.Context(), id)
	if err != nil {
		slog.Error("failed to get bag", "id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}
	if bag == nil {
		http.Error(w, "bag not found", http.StatusNotFound)
		return nil, false
	}
	return bag, true
}

func (s *Server) pageDataWithError(r *http.Request, title, message string) PageData {
	data := s.pageData(r, title)
	data.Error = message
	return data
}

func validationMessage(err error) string {
	var ve *model.ValidationError
	if errors.As(err, &ve) && ve.Field != "" {
		return strings.ToUpper(ve.Field[:1]) + ve.Field[1:] + " " + ve.Message + "."
	}
	return err.Error()
}
