package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BloggingApp/comment-service/internal/dto"
	"github.com/BloggingApp/comment-service/internal/model"
	"github.com/BloggingApp/comment-service/internal/repository"
	"github.com/BloggingApp/comment-service/internal/repository/postgres"
	"github.com/BloggingApp/comment-service/internal/repository/redisrepo"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ---- in-memory fakes over the repository interfaces ----

type fakeCommentRepo struct {
	mu       sync.Mutex
	nextID   int64
	comments map[int64]*model.Comment
}

func newFakeCommentRepo() *fakeCommentRepo {
	return &fakeCommentRepo{comments: make(map[int64]*model.Comment)}
}

func (r *fakeCommentRepo) Create(_ context.Context, comment model.Comment) (*model.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	comment.ID = r.nextID
	comment.ChildrenIDs = nil
	comment.CreatedAt = time.Unix(1700000000+r.nextID, 0)

	stored := comment
	r.comments[comment.ID] = &stored
	return &comment, nil
}

func (r *fakeCommentRepo) FindByID(_ context.Context, id int64) (*model.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	comment, ok := r.comments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}

	copied := *comment
	copied.ChildrenIDs = append([]int64(nil), comment.ChildrenIDs...)
	return &copied, nil
}

func (r *fakeCommentRepo) FindArticleComments(_ context.Context, articleID int64, limit int, offset int) ([]*model.FullComment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*model.Comment
	for _, comment := range r.comments {
		if comment.ArticleID == articleID && comment.ParentID == nil {
			matched = append(matched, comment)
		}
	}

	return pageNewestFirst(matched, limit, offset), nil
}

func (r *fakeCommentRepo) FindCommentReplies(_ context.Context, commentID int64, limit int, offset int) ([]*model.FullComment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*model.Comment
	for _, comment := range r.comments {
		if comment.ParentID != nil && *comment.ParentID == commentID {
			matched = append(matched, comment)
		}
	}

	return pageNewestFirst(matched, limit, offset), nil
}

func pageNewestFirst(matched []*model.Comment, limit int, offset int) []*model.FullComment {
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	if offset >= len(matched) {
		return nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}

	var page []*model.FullComment
	for _, comment := range matched[offset:end] {
		copied := *comment
		page = append(page, &model.FullComment{
			Comment: copied,
			Author:  model.UserAuthor{Username: "someone"},
		})
	}
	return page
}

func (r *fakeCommentRepo) FindChildrenIDs(_ context.Context, parentIDs []int64) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	parents := make(map[int64]struct{}, len(parentIDs))
	for _, id := range parentIDs {
		parents[id] = struct{}{}
	}

	var ids []int64
	for _, comment := range r.comments {
		if comment.ParentID == nil {
			continue
		}
		if _, ok := parents[*comment.ParentID]; ok {
			ids = append(ids, comment.ID)
		}
	}
	return ids, nil
}

func (r *fakeCommentRepo) AppendChild(_ context.Context, parentID int64, childID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	parent, ok := r.comments[parentID]
	if !ok {
		return pgx.ErrNoRows
	}
	parent.ChildrenIDs = append(parent.ChildrenIDs, childID)
	return nil
}

func (r *fakeCommentRepo) RemoveChild(_ context.Context, parentID int64, childID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	parent, ok := r.comments[parentID]
	if !ok {
		return nil
	}

	children := parent.ChildrenIDs[:0]
	for _, id := range parent.ChildrenIDs {
		if id != childID {
			children = append(children, id)
		}
	}
	parent.ChildrenIDs = children
	return nil
}

func (r *fakeCommentRepo) DeleteMany(_ context.Context, ids []int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for _, id := range ids {
		if _, ok := r.comments[id]; ok {
			delete(r.comments, id)
			removed++
		}
	}
	return removed, nil
}

func (r *fakeCommentRepo) liveCounts(articleID int64) (total int64, parents int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, comment := range r.comments {
		if comment.ArticleID != articleID {
			continue
		}
		total++
		if comment.ParentID == nil {
			parents++
		}
	}
	return total, parents
}

type fakeArticleRepo struct {
	mu       sync.Mutex
	owners   map[int64]uuid.UUID
	counters map[int64]*[2]int64 // total, parents
}

func newFakeArticleRepo() *fakeArticleRepo {
	return &fakeArticleRepo{
		owners:   make(map[int64]uuid.UUID),
		counters: make(map[int64]*[2]int64),
	}
}

func (r *fakeArticleRepo) addArticle(id int64, ownerID uuid.UUID) {
	r.owners[id] = ownerID
	r.counters[id] = &[2]int64{}
}

func (r *fakeArticleRepo) FindByID(context.Context, int64) (*model.FullArticle, error) {
	return nil, pgx.ErrNoRows
}

func (r *fakeArticleRepo) FindAuthorArticles(context.Context, uuid.UUID, int, int) ([]*model.FullArticle, error) {
	return nil, pgx.ErrNoRows
}

func (r *fakeArticleRepo) GetOwner(_ context.Context, id int64) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.owners[id]
	if !ok {
		return uuid.Nil, pgx.ErrNoRows
	}
	return owner, nil
}

func (r *fakeArticleRepo) IncrViews(context.Context, int64) error {
	return nil
}

func (r *fakeArticleRepo) AddComments(_ context.Context, id int64, totalDelta int64, parentDelta int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	counters, ok := r.counters[id]
	if !ok {
		return pgx.ErrNoRows
	}
	counters[0] += totalDelta
	counters[1] += parentDelta
	return nil
}

func (r *fakeArticleRepo) counts(id int64) (int64, int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counters := r.counters[id]
	return counters[0], counters[1]
}

type fakeNotificationRepo struct {
	mu            sync.Mutex
	nextID        int64
	notifications map[int64]*model.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{notifications: make(map[int64]*model.Notification)}
}

func (r *fakeNotificationRepo) Create(_ context.Context, notification model.Notification) (*model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	notification.ID = r.nextID
	notification.CreatedAt = time.Now()

	stored := notification
	r.notifications[notification.ID] = &stored
	return &notification, nil
}

func (r *fakeNotificationRepo) DeleteByComments(_ context.Context, commentIDs []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, commentID := range commentIDs {
		for id, notification := range r.notifications {
			if notification.CommentID == commentID {
				delete(r.notifications, id)
			}
		}
	}
	return nil
}

func (r *fakeNotificationRepo) FindUserNotifications(_ context.Context, userID uuid.UUID, limit int, offset int) ([]*model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*model.Notification
	for _, notification := range r.notifications {
		if notification.TargetUserID == userID {
			matched = append(matched, notification)
		}
	}
	return matched, nil
}

func (r *fakeNotificationRepo) all() []*model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []*model.Notification
	for _, notification := range r.notifications {
		all = append(all, notification)
	}
	return all
}

type fakeUserCacheRepo struct{}

func (fakeUserCacheRepo) Create(context.Context, model.CachedUser) error { return nil }
func (fakeUserCacheRepo) Update(context.Context, uuid.UUID, map[string]interface{}) error {
	return nil
}
func (fakeUserCacheRepo) FindByID(context.Context, uuid.UUID) (*model.CachedUser, error) {
	return nil, pgx.ErrNoRows
}

// missCache is a redis stand-in that always misses and accepts every write.
type missCache struct{}

func (missCache) Set(context.Context, string, interface{}, time.Duration) error     { return nil }
func (missCache) SetJSON(context.Context, string, interface{}, time.Duration) error { return nil }

func (missCache) Get(ctx context.Context, _ string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	cmd.SetErr(redis.Nil)
	return cmd
}

func (missCache) Del(ctx context.Context, _ ...string) *redis.IntCmd   { return redis.NewIntCmd(ctx) }
func (missCache) Incr(ctx context.Context, _ string) *redis.IntCmd     { return redis.NewIntCmd(ctx) }
func (missCache) Decr(ctx context.Context, _ string) *redis.IntCmd     { return redis.NewIntCmd(ctx) }
func (missCache) IncrBy(ctx context.Context, _ string, _ int64) *redis.IntCmd {
	return redis.NewIntCmd(ctx)
}
func (missCache) DecrBy(ctx context.Context, _ string, _ int64) *redis.IntCmd {
	return redis.NewIntCmd(ctx)
}
func (missCache) Keys(ctx context.Context, _ string) *redis.StringSliceCmd {
	return redis.NewStringSliceCmd(ctx)
}

type fakePublisher struct {
	mu        sync.Mutex
	published []string
}

func (p *fakePublisher) Publish(_ context.Context, queue string, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, queue)
	return nil
}

func (p *fakePublisher) Consume(string) (<-chan amqp.Delivery, error) {
	ch := make(chan amqp.Delivery)
	close(ch)
	return ch, nil
}

type commentFixture struct {
	svc           Comment
	comments      *fakeCommentRepo
	articles      *fakeArticleRepo
	notifications *fakeNotificationRepo
	publisher     *fakePublisher
}

func newCommentFixture() *commentFixture {
	comments := newFakeCommentRepo()
	articles := newFakeArticleRepo()
	notifications := newFakeNotificationRepo()
	publisher := &fakePublisher{}

	repo := &repository.Repository{
		Postgres: &postgres.PostgresRepository{
			Article:      articles,
			Comment:      comments,
			Notification: notifications,
			UserCache:    fakeUserCacheRepo{},
		},
		Redis: &redisrepo.RedisRepository{Default: missCache{}},
	}

	return &commentFixture{
		svc:           newCommentService(zap.NewNop(), repo, publisher),
		comments:      comments,
		articles:      articles,
		notifications: notifications,
		publisher:     publisher,
	}
}

func (f *commentFixture) assertCountersConsistent(t *testing.T, articleID int64) {
	t.Helper()

	total, parents := f.articles.counts(articleID)
	liveTotal, liveParents := f.comments.liveCounts(articleID)
	assert.Equal(t, liveTotal, total, "total_comments must match live comments")
	assert.Equal(t, liveParents, parents, "total_parent_comments must match live roots")
}

// ---- tests ----

func TestCommentService_CreateRootComment(t *testing.T) {
	f := newCommentFixture()
	ctx := context.Background()

	owner := uuid.New()
	commenter := uuid.New()
	f.articles.addArticle(1, owner)

	created, err := f.svc.Create(ctx, commenter, dto.CreateCommentDto{ArticleID: 1, Body: "hello"})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	assert.Equal(t, "hello", created.Body)
	assert.False(t, created.IsReply())
	assert.Equal(t, owner, created.ArticleAuthorID)
	assert.False(t, created.CreatedAt.IsZero())

	total, parents := f.articles.counts(1)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, int64(1), parents)
	f.assertCountersConsistent(t, 1)

	notifications := f.notifications.all()
	require.Len(t, notifications, 1)
	assert.Equal(t, model.NotificationTypeComment, notifications[0].Type)
	assert.Equal(t, owner, notifications[0].TargetUserID)
	assert.Equal(t, commenter, notifications[0].ActorID)
	assert.Equal(t, created.ID, notifications[0].CommentID)
	assert.Len(t, f.publisher.published, 1)
}

func TestCommentService_CreateReply(t *testing.T) {
	f := newCommentFixture()
	ctx := context.Background()

	owner := uuid.New()
	u1 := uuid.New()
	u2 := uuid.New()
	f.articles.addArticle(1, owner)

	root, err := f.svc.Create(ctx, u1, dto.CreateCommentDto{ArticleID: 1, Body: "hello"})
	require.NoError(t, err)

	reply, err := f.svc.Create(ctx, u2, dto.CreateCommentDto{ArticleID: 1, Body: "hi", ParentID: &root.ID})
	require.NoError(t, err)
	assert.True(t, reply.IsReply())

	total, parents := f.articles.counts(1)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, int64(1), parents, "a reply must not touch the root counter")
	f.assertCountersConsistent(t, 1)

	parent, err := f.comments.FindByID(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{reply.ID}, parent.ChildrenIDs)

	var replyNotification *model.Notification
	for _, notification := range f.notifications.all() {
		if notification.Type == model.NotificationTypeReply {
			replyNotification = notification
		}
	}
	require.NotNil(t, replyNotification)
	assert.Equal(t, u1, replyNotification.TargetUserID, "a reply notifies the parent author")
	assert.Equal(t, u2, replyNotification.ActorID)
}

func TestCommentService_DeleteCascades(t *testing.T) {
	f := newCommentFixture()
	ctx := context.Background()

	owner := uuid.New()
	u1 := uuid.New()
	u2 := uuid.New()
	f.articles.addArticle(1, owner)

	root, err := f.svc.Create(ctx, u1, dto.CreateCommentDto{ArticleID: 1, Body: "hello"})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, u2, dto.CreateCommentDto{ArticleID: 1, Body: "hi", ParentID: &root.ID})
	require.NoError(t, err)

	// The article owner deletes the root with its reply attached.
	require.NoError(t, f.svc.Delete(ctx, root.ID, owner))

	total, parents := f.articles.counts(1)
	assert.Equal(t, int64(0), total)
	assert.Equal(t, int64(0), parents)
	f.assertCountersConsistent(t, 1)
	assert.Empty(t, f.notifications.all(), "both notifications must be removed")
}

func TestCommentService_DeleteDeepCascade(t *testing.T) {
	f := newCommentFixture()
	ctx := context.Background()

	owner := uuid.New()
	author := uuid.New()
	f.articles.addArticle(1, owner)

	// root -> r1 -> (r1a, r1b -> r1b1), plus an untouched sibling root.
	root, err := f.svc.Create(ctx, author, dto.CreateCommentDto{ArticleID: 1, Body: "root"})
	require.NoError(t, err)
	r1, err := f.svc.Create(ctx, author, dto.CreateCommentDto{ArticleID: 1, Body: "r1", ParentID: &root.ID})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, author, dto.CreateCommentDto{ArticleID: 1, Body: "r1a", ParentID: &r1.ID})
	require.NoError(t, err)
	r1b, err := f.svc.Create(ctx, author, dto.CreateCommentDto{ArticleID: 1, Body: "r1b", ParentID: &r1.ID})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, author, dto.CreateCommentDto{ArticleID: 1, Body: "r1b1", ParentID: &r1b.ID})
	require.NoError(t, err)
	sibling, err := f.svc.Create(ctx, author, dto.CreateCommentDto{ArticleID: 1, Body: "other"})
	require.NoError(t, err)
	f.assertCountersConsistent(t, 1)

	// Deleting r1 removes its whole subtree but neither root nor the sibling.
	require.NoError(t, f.svc.Delete(ctx, r1.ID, author))

	total, parents := f.articles.counts(1)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, int64(2), parents)
	f.assertCountersConsistent(t, 1)

	kept, err := f.comments.FindByID(ctx, root.ID)
	require.NoError(t, err)
	assert.NotContains(t, kept.ChildrenIDs, r1.ID, "the deleted reply must be detached")

	_, err = f.comments.FindByID(ctx, sibling.ID)
	assert.NoError(t, err)

	// No survivor may reference a deleted comment.
	for id := range f.comments.comments {
		comment, err := f.comments.FindByID(ctx, id)
		require.NoError(t, err)
		if comment.ParentID != nil {
			_, err := f.comments.FindByID(ctx, *comment.ParentID)
			assert.NoError(t, err, "comment %d has a dangling parent", id)
		}
	}
}

func TestCommentService_DeleteRequiresPermission(t *testing.T) {
	f := newCommentFixture()
	ctx := context.Background()

	owner := uuid.New()
	u1 := uuid.New()
	u3 := uuid.New()
	f.articles.addArticle(1, owner)

	created, err := f.svc.Create(ctx, u1, dto.CreateCommentDto{ArticleID: 1, Body: "hello"})
	require.NoError(t, err)

	err = f.svc.Delete(ctx, created.ID, u3)
	assert.ErrorIs(t, err, ErrNoPermission)

	total, parents := f.articles.counts(1)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, int64(1), parents)
	assert.Len(t, f.notifications.all(), 1, "state must be unchanged")

	// The comment author can delete it, and so can the article owner.
	require.NoError(t, f.svc.Delete(ctx, created.ID, u1))
	f.assertCountersConsistent(t, 1)
}

func TestCommentService_DeleteMissingComment(t *testing.T) {
	f := newCommentFixture()
	f.articles.addArticle(1, uuid.New())

	err := f.svc.Delete(context.Background(), 42, uuid.New())
	assert.ErrorIs(t, err, ErrCommentNotFound)
}

func TestCommentService_CreateValidation(t *testing.T) {
	f := newCommentFixture()
	ctx := context.Background()

	author := uuid.New()
	f.articles.addArticle(1, uuid.New())

	_, err := f.svc.Create(ctx, author, dto.CreateCommentDto{ArticleID: 1, Body: "   "})
	assert.ErrorIs(t, err, ErrEmptyComment)

	_, err = f.svc.Create(ctx, author, dto.CreateCommentDto{ArticleID: 1, Body: strings.Repeat("x", MAX_COMMENT_BODY_LEN+1)})
	assert.ErrorIs(t, err, ErrCommentTooLong)

	_, err = f.svc.Create(ctx, author, dto.CreateCommentDto{ArticleID: 99, Body: "hello"})
	assert.ErrorIs(t, err, ErrArticleNotFound)

	missingParent := int64(123)
	_, err = f.svc.Create(ctx, author, dto.CreateCommentDto{ArticleID: 1, Body: "hello", ParentID: &missingParent})
	assert.ErrorIs(t, err, ErrCommentNotFound)

	total, _ := f.articles.counts(1)
	assert.Equal(t, int64(0), total, "failed creates must have no side effects")
	assert.Empty(t, f.notifications.all())
	assert.Empty(t, f.publisher.published)
}

func TestCommentService_CreateReplyParentMismatch(t *testing.T) {
	f := newCommentFixture()
	ctx := context.Background()

	author := uuid.New()
	f.articles.addArticle(1, uuid.New())
	f.articles.addArticle(2, uuid.New())

	onOther, err := f.svc.Create(ctx, author, dto.CreateCommentDto{ArticleID: 2, Body: "elsewhere"})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, author, dto.CreateCommentDto{ArticleID: 1, Body: "hello", ParentID: &onOther.ID})
	assert.ErrorIs(t, err, ErrParentMismatch)
}

func TestCommentService_NoSelfNotification(t *testing.T) {
	f := newCommentFixture()
	ctx := context.Background()

	owner := uuid.New()
	f.articles.addArticle(1, owner)

	// The article owner commenting on their own article gets no notification.
	_, err := f.svc.Create(ctx, owner, dto.CreateCommentDto{ArticleID: 1, Body: "my own article"})
	require.NoError(t, err)
	assert.Empty(t, f.notifications.all())
	assert.Empty(t, f.publisher.published)
}

func TestCommentService_ListRootComments(t *testing.T) {
	f := newCommentFixture()
	ctx := context.Background()

	author := uuid.New()
	f.articles.addArticle(1, author)

	var ids []int64
	for i := 0; i < 7; i++ {
		created, err := f.svc.Create(ctx, author, dto.CreateCommentDto{ArticleID: 1, Body: "c"})
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}

	first, err := f.svc.FindArticleComments(ctx, 1, 5, 0)
	require.NoError(t, err)
	require.Len(t, first, 5)

	// Repeating the call without mutations yields the identical page.
	again, err := f.svc.FindArticleComments(ctx, 1, 5, 0)
	require.NoError(t, err)
	for i := range first {
		assert.Equal(t, first[i].Comment.ID, again[i].Comment.ID)
	}

	rest, err := f.svc.FindArticleComments(ctx, 1, 5, 5)
	require.NoError(t, err)
	require.Len(t, rest, 2)

	// Newest-first, no overlap between pages, all roots covered.
	var listed []int64
	for _, comment := range append(first, rest...) {
		listed = append(listed, comment.Comment.ID)
		assert.Nil(t, comment.Comment.ParentID)
	}
	for i := 1; i < len(listed); i++ {
		assert.Greater(t, listed[i-1], listed[i])
	}
	assert.ElementsMatch(t, ids, listed)
}

func TestCommentService_ListRepliesDoesNotRecurse(t *testing.T) {
	f := newCommentFixture()
	ctx := context.Background()

	author := uuid.New()
	f.articles.addArticle(1, author)

	root, err := f.svc.Create(ctx, author, dto.CreateCommentDto{ArticleID: 1, Body: "root"})
	require.NoError(t, err)
	child, err := f.svc.Create(ctx, author, dto.CreateCommentDto{ArticleID: 1, Body: "child", ParentID: &root.ID})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, author, dto.CreateCommentDto{ArticleID: 1, Body: "grandchild", ParentID: &child.ID})
	require.NoError(t, err)

	replies, err := f.svc.FindCommentReplies(ctx, root.ID, 5, 0)
	require.NoError(t, err)
	require.Len(t, replies, 1, "only direct children are listed")
	assert.Equal(t, child.ID, replies[0].Comment.ID)
}
