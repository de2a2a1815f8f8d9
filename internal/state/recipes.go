package state

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pageza/recipehub/internal/apiclient"
	"github.com/pageza/recipehub/internal/logger"
	"github.com/pageza/recipehub/internal/models"
	"github.com/pageza/recipehub/internal/notify"
	"github.com/pageza/recipehub/internal/service"
	"github.com/pageza/recipehub/internal/types"
)

// Viewer resolves the signed-in user that like and star flags refer to.
type Viewer interface {
	User() *models.User
}

// RecipeState is a snapshot of the recipe collection for views.
type RecipeState struct {
	Recipes []models.Recipe `json:"recipes"`
	Total   int             `json:"total"`
	Loading bool            `json:"loading"`
	Error   string          `json:"error,omitempty"`
}

// RecipeProvider holds the canonical recipe collection. Mutations are
// applied locally first and rolled back if the server rejects them; the
// lock is never held across a request.
type RecipeProvider struct {
	recipes service.IRecipeService
	viewer  Viewer
	notes   notify.Notifier
	logger  *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	items   []*models.Recipe
	total   int
	loading bool
	lastErr string
	fetch   string
	pending map[string]struct{}
	hub     Hub[RecipeState]
}

// NewRecipeProvider creates an empty provider. notes may be nil.
func NewRecipeProvider(recipes service.IRecipeService, viewer Viewer, notes notify.Notifier, log *zap.Logger) *RecipeProvider {
	if notes == nil {
		notes = notify.Discard{}
	}
	return &RecipeProvider{
		recipes: recipes,
		viewer:  viewer,
		notes:   notes,
		logger:  logger.OrNop(log).Named("recipe_state"),
		now:     time.Now,
		pending: map[string]struct{}{},
	}
}

func (p *RecipeProvider) viewerID() string {
	if u := p.viewer.User(); u != nil {
		return u.ID
	}
	return ""
}

// snapshot must be called with p.mu held.
func (p *RecipeProvider) snapshot() RecipeState {
	out := make([]models.Recipe, len(p.items))
	for i, r := range p.items {
		out[i] = *r.Clone()
	}
	return RecipeState{Recipes: out, Total: p.total, Loading: p.loading, Error: p.lastErr}
}

// publish must be called with p.mu held.
func (p *RecipeProvider) publish() {
	p.hub.Publish(p.snapshot())
}

// indexOf must be called with p.mu held.
func (p *RecipeProvider) indexOf(id string) int {
	return slices.IndexFunc(p.items, func(r *models.Recipe) bool { return r.ID == id })
}

// FetchRecipes replaces the collection with the server's list. A response
// arriving after a newer fetch or Detach is discarded with ErrSuperseded.
func (p *RecipeProvider) FetchRecipes(ctx context.Context, filter types.RecipeFilter) ([]models.Recipe, error) {
	token := uuid.NewString()
	p.mu.Lock()
	p.fetch = token
	p.loading = true
	p.lastErr = ""
	p.publish()
	p.mu.Unlock()

	list, err := p.recipes.GetRecipes(ctx, filter)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fetch != token {
		p.logger.Debug("discarding superseded recipe list")
		return nil, ErrSuperseded
	}
	p.fetch = ""
	p.loading = false
	if err != nil {
		if !apiclient.IsCanceled(err) {
			p.lastErr = messageOr(err, "Failed to fetch recipes")
			p.notes.Push(notify.LevelError, p.lastErr)
		}
		p.publish()
		return nil, err
	}

	uid := p.viewerID()
	items := make([]*models.Recipe, len(list.Items))
	for i := range list.Items {
		r := list.Items[i]
		r.DeriveFlags(uid)
		items[i] = &r
	}
	p.items = items
	p.total = list.Total
	p.publish()
	return p.snapshot().Recipes, nil
}

// Detach invalidates any fetch in flight, e.g. when the view that started
// it goes away.
func (p *RecipeProvider) Detach() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fetch != "" {
		p.fetch = ""
		p.loading = false
		p.publish()
	}
}

// Rederive recomputes Liked and Starred for the current viewer.
func (p *RecipeProvider) Rederive() {
	uid := p.viewerID()
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range p.items {
		r.DeriveFlags(uid)
	}
	p.publish()
}

// mutation is one optimistic change to a single recipe.
type mutation struct {
	id     string
	target *models.Recipe
	prior  *models.Recipe
	user   models.UserRef
}

// begin applies change to recipe id under the lock and marks it pending.
func (p *RecipeProvider) begin(id string, change func(r *models.Recipe, user models.UserRef)) (*mutation, error) {
	u := p.viewer.User()
	if u == nil {
		return nil, ErrNotAuthenticated
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.indexOf(id)
	if i < 0 {
		return nil, ErrRecipeNotFound
	}
	if _, busy := p.pending[id]; busy {
		return nil, ErrMutationPending
	}
	m := &mutation{id: id, target: p.items[i], prior: p.items[i].Clone(), user: models.UserRef{ID: u.ID}}
	change(m.target, m.user)
	p.pending[id] = struct{}{}
	p.publish()
	return m, nil
}

// finish clears the pending mark and returns the recipe held under the
// mutation's id, or nil if it was removed. same reports whether that is
// still the copy the mutation was applied to. It must be called with p.mu held.
func (p *RecipeProvider) finish(m *mutation) (r *models.Recipe, same bool) {
	delete(p.pending, m.id)
	i := p.indexOf(m.id)
	if i < 0 {
		return nil, false
	}
	return p.items[i], p.items[i] == m.target
}

// confirm returns the recipe a server confirmation is written to: the copy
// held now, which a fetch may have swapped in, or a detached copy of the
// mutated recipe when it was removed. It must be called with p.mu held.
func (p *RecipeProvider) confirm(m *mutation) *models.Recipe {
	if r, _ := p.finish(m); r != nil {
		return r
	}
	return m.target.Clone()
}

// rollback restores the prior snapshot of the single affected recipe unless
// a fetch replaced it meanwhile. It must be called with p.mu held.
func (p *RecipeProvider) rollback(m *mutation, err error, toast string) {
	if r, same := p.finish(m); same {
		*r = *m.prior
	}
	p.lastErr = messageOr(err, toast)
	p.notes.Push(notify.LevelError, toast)
	p.logger.Info("rolled back recipe change", zap.String("recipe_id", m.id), zap.Error(err))
	p.publish()
}

// Like toggles the viewer's like on recipe id.
func (p *RecipeProvider) Like(ctx context.Context, id string) (models.Recipe, error) {
	m, err := p.begin(id, func(r *models.Recipe, u models.UserRef) { r.ToggleLike(u) })
	if err != nil {
		return models.Recipe{}, err
	}

	res, err := p.recipes.LikeRecipe(ctx, id)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.rollback(m, err, "Failed to like recipe")
		return *m.prior.Clone(), err
	}
	r := p.confirm(m)
	r.ApplyLike(res.Liked, res.Likes, m.user)
	if res.Liked {
		p.notes.Push(notify.LevelSuccess, "Recipe liked!")
	} else {
		p.notes.Push(notify.LevelSuccess, "Recipe unliked")
	}
	p.publish()
	return *r.Clone(), nil
}

// Star toggles the viewer's star on recipe id.
func (p *RecipeProvider) Star(ctx context.Context, id string) (models.Recipe, error) {
	m, err := p.begin(id, func(r *models.Recipe, u models.UserRef) { r.ToggleStar(u) })
	if err != nil {
		return models.Recipe{}, err
	}

	res, err := p.recipes.StarRecipe(ctx, id)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.rollback(m, err, "Failed to save recipe")
		return *m.prior.Clone(), err
	}
	r := p.confirm(m)
	r.ApplyStar(res.Starred, res.Stars, m.user)
	if res.Starred {
		p.notes.Push(notify.LevelSuccess, "Recipe saved to favorites!")
	} else {
		p.notes.Push(notify.LevelSuccess, "Recipe removed from favorites")
	}
	p.publish()
	return *r.Clone(), nil
}

// AddReview appends the viewer's review and recomputes the average rating
// before the server confirms it.
func (p *RecipeProvider) AddReview(ctx context.Context, id string, req types.ReviewRequest) (models.Recipe, error) {
	if err := types.Validate(req); err != nil {
		return models.Recipe{}, apiclient.ValidationFailed(err)
	}
	tempID := "pending-" + uuid.NewString()
	m, err := p.begin(id, func(r *models.Recipe, u models.UserRef) {
		if r.Reviews == nil {
			r.Reviews = []models.Review{}
		}
		r.AddReview(models.Review{ID: tempID, Rating: req.Rating, Comment: req.Comment, User: u, CreatedAt: p.now()})
	})
	if err != nil {
		return models.Recipe{}, err
	}

	res, err := p.recipes.AddReview(ctx, id, req)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.rollback(m, err, "Failed to add review")
		return *m.prior.Clone(), err
	}
	r := p.confirm(m)
	switch {
	case res.Recipe != nil:
		*r = *res.Recipe.Clone()
		r.DeriveFlags(m.user.ID)
	case res.Review != nil:
		i := slices.IndexFunc(r.Reviews, func(rv models.Review) bool {
			return rv.ID == tempID || (res.Review.ID != "" && rv.ID == res.Review.ID)
		})
		if i >= 0 {
			r.Reviews[i] = *res.Review
		} else {
			r.Reviews = append(r.Reviews, *res.Review)
		}
		r.RecomputeRating()
	}
	p.notes.Push(notify.LevelSuccess, "Review added!")
	p.publish()
	return *r.Clone(), nil
}

// Create inserts a placeholder at the front of the collection and swaps in
// the server's recipe once it is created.
func (p *RecipeProvider) Create(ctx context.Context, input *types.RecipeInput) (models.Recipe, error) {
	if err := types.Validate(input); err != nil {
		return models.Recipe{}, apiclient.ValidationFailed(err)
	}
	u := p.viewer.User()
	if u == nil {
		return models.Recipe{}, ErrNotAuthenticated
	}
	temp := &models.Recipe{
		ID:           "temp-" + uuid.NewString(),
		Title:        input.Title,
		Description:  input.Description,
		Category:     input.Category,
		Difficulty:   input.Difficulty,
		PrepTime:     input.PrepTime,
		CookTime:     input.CookTime,
		Servings:     input.Servings,
		Ingredients:  slices.Clone(input.Ingredients),
		Instructions: slices.Clone(input.Instructions),
		Tags:         slices.Clone(input.Tags),
		Image:        input.ImageURL,
		Author:       u.Ref(),
		Likes:        []models.UserRef{},
		Stars:        []models.UserRef{},
		CreatedAt:    p.now(),
	}
	p.mu.Lock()
	p.items = append([]*models.Recipe{temp}, p.items...)
	p.total++
	p.publish()
	p.mu.Unlock()

	created, err := p.recipes.CreateRecipe(ctx, input)

	p.mu.Lock()
	defer p.mu.Unlock()
	i := slices.Index(p.items, temp)
	if err != nil {
		if i >= 0 {
			p.items = slices.Delete(p.items, i, i+1)
			p.total--
		}
		p.lastErr = messageOr(err, "Failed to create recipe")
		p.notes.Push(notify.LevelError, p.lastErr)
		p.publish()
		return models.Recipe{}, err
	}
	r := created.Clone()
	r.DeriveFlags(u.ID)
	if i >= 0 {
		p.items[i] = r
	} else if p.indexOf(r.ID) < 0 {
		p.items = append([]*models.Recipe{r}, p.items...)
	}
	p.notes.Push(notify.LevelSuccess, "Recipe created successfully!")
	p.publish()
	return *r.Clone(), nil
}

// Update saves input for recipe id and replaces the local copy with the
// server's response.
func (p *RecipeProvider) Update(ctx context.Context, id string, input *types.RecipeInput) (models.Recipe, error) {
	if err := types.Validate(input); err != nil {
		return models.Recipe{}, apiclient.ValidationFailed(err)
	}
	m, err := p.begin(id, func(*models.Recipe, models.UserRef) {})
	if err != nil {
		return models.Recipe{}, err
	}

	updated, err := p.recipes.UpdateRecipe(ctx, id, input)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.rollback(m, err, "Failed to update recipe")
		return models.Recipe{}, err
	}
	r := updated.Clone()
	r.DeriveFlags(m.user.ID)
	if cur, _ := p.finish(m); cur != nil {
		*cur = *r
	}
	p.notes.Push(notify.LevelSuccess, "Recipe updated successfully!")
	p.publish()
	return *r.Clone(), nil
}

// Delete removes recipe id at once and puts it back at its position if the
// server refuses.
func (p *RecipeProvider) Delete(ctx context.Context, id string) error {
	p.mu.Lock()
	i := p.indexOf(id)
	if i < 0 {
		p.mu.Unlock()
		return ErrRecipeNotFound
	}
	if _, busy := p.pending[id]; busy {
		p.mu.Unlock()
		return ErrMutationPending
	}
	removed := p.items[i]
	p.items = slices.Delete(p.items, i, i+1)
	p.total--
	p.pending[id] = struct{}{}
	p.publish()
	p.mu.Unlock()

	err := p.recipes.DeleteRecipe(ctx, id)

	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pending, id)
	if err != nil {
		if p.indexOf(id) < 0 {
			p.items = slices.Insert(p.items, min(i, len(p.items)), removed)
			p.total++
		}
		p.lastErr = messageOr(err, "Failed to delete recipe")
		p.notes.Push(notify.LevelError, p.lastErr)
		p.publish()
		return err
	}
	p.notes.Push(notify.LevelSuccess, "Recipe deleted successfully!")
	p.publish()
	return nil
}

// AddRecipe prepends r without a request.
func (p *RecipeProvider) AddRecipe(r models.Recipe) {
	c := r.Clone()
	c.DeriveFlags(p.viewerID())
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = append([]*models.Recipe{c}, p.items...)
	p.total++
	p.publish()
}

// ReplaceRecipe swaps the recipe with r's id for r without a request.
func (p *RecipeProvider) ReplaceRecipe(r models.Recipe) bool {
	c := r.Clone()
	c.DeriveFlags(p.viewerID())
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.indexOf(r.ID)
	if i < 0 {
		return false
	}
	p.items[i] = c
	p.publish()
	return true
}

// RemoveRecipe drops recipe id without a request.
func (p *RecipeProvider) RemoveRecipe(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.indexOf(id)
	if i < 0 {
		return false
	}
	p.items = slices.Delete(p.items, i, i+1)
	p.total--
	p.publish()
	return true
}

// Recipes returns a copy of the collection.
func (p *RecipeProvider) Recipes() []models.Recipe {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot().Recipes
}

// Recipe returns a copy of recipe id.
func (p *RecipeProvider) Recipe(id string) (models.Recipe, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.indexOf(id)
	if i < 0 {
		return models.Recipe{}, false
	}
	return *p.items[i].Clone(), true
}

// State returns the current snapshot.
func (p *RecipeProvider) State() RecipeState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot()
}

// Subscribe streams collection snapshots.
func (p *RecipeProvider) Subscribe() (<-chan RecipeState, func()) { return p.hub.Subscribe() }
