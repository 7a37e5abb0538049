package thread

import (
	"context"
	"errors"
	"sync"

	"github.com/BloggingApp/comment-service/internal/model"
)

const DEFAULT_PAGE_SIZE = 5

var (
	ErrIndexOutOfRange = errors.New("index is out of range")
	ErrNotExpanded     = errors.New("comment replies are not expanded")
)

// Node is one entry of the flat render sequence: a fetched comment annotated
// with its nesting depth and the reply-loading bookkeeping.
type Node struct {
	model.FullComment
	Depth           int
	RepliesExpanded bool
	LoadedReplies   int
}

// TotalReplies is the authoritative direct-child count carried by the payload.
func (n *Node) TotalReplies() int {
	return len(n.Comment.ChildrenIDs)
}

// Session holds the flat, depth-annotated projection of one article's comment
// tree. It is the per-view state object: two articles viewed concurrently get
// two independent sessions.
//
// Invariant: the loaded descendants of the node at position i form a
// contiguous run immediately after i, each with a strictly greater depth,
// terminated by the first node with depth <= nodes[i].Depth.
type Session struct {
	mu      sync.Mutex
	fetcher Fetcher

	articleID int64
	pageSize  int

	nodes       []*Node
	rootsLoaded int
	totalRoots  int64

	// gen guards against stale fetch results: Collapse and RemoveLocal bump
	// the comment's generation, and a fetch started under an older generation
	// discards its result instead of splicing.
	gen map[int64]uint64
}

func NewSession(fetcher Fetcher, article model.Article, pageSize int) *Session {
	if pageSize <= 0 {
		pageSize = DEFAULT_PAGE_SIZE
	}

	return &Session{
		fetcher:    fetcher,
		articleID:  article.ID,
		pageSize:   pageSize,
		totalRoots: article.TotalParentComments,
		gen:        make(map[int64]uint64),
	}
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nodes)
}

// Node returns the entry at the given flat position.
func (s *Session) Node(index int) (*Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.nodes) {
		return nil, ErrIndexOutOfRange
	}
	return s.nodes[index], nil
}

// Nodes returns a snapshot of the current flat sequence.
func (s *Session) Nodes() []*Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]*Node, len(s.nodes))
	copy(snapshot, s.nodes)
	return snapshot
}

// LoadRoots fetches the next page of root comments and appends it to the
// sequence at depth 0.
func (s *Session) LoadRoots(ctx context.Context) (int, error) {
	s.mu.Lock()
	offset := s.rootsLoaded
	s.mu.Unlock()

	page, err := s.fetcher.FetchRoots(ctx, s.articleID, s.pageSize, offset)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, comment := range page {
		s.nodes = append(s.nodes, &Node{FullComment: *comment})
	}
	s.rootsLoaded += len(page)

	return len(page), nil
}

// HasMoreRoots reports whether the article has root comments beyond the ones
// already loaded.
func (s *Session) HasMoreRoots() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(s.rootsLoaded) < s.totalRoots
}

// Expand loads the first page of the node's replies and splices them in right
// after it. A node without replies is just marked expanded.
func (s *Session) Expand(ctx context.Context, index int) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.nodes) {
		s.mu.Unlock()
		return ErrIndexOutOfRange
	}

	node := s.nodes[index]
	if node.RepliesExpanded {
		s.mu.Unlock()
		return nil
	}
	if node.TotalReplies() == 0 {
		node.RepliesExpanded = true
		s.mu.Unlock()
		return nil
	}

	id := node.Comment.ID
	depth := node.Depth
	startGen := s.gen[id]
	s.mu.Unlock()

	page, err := s.fetcher.FetchReplies(ctx, id, s.pageSize, 0)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A collapse or removal superseded this fetch: drop the result.
	if s.gen[id] != startGen {
		return nil
	}
	at := s.indexOf(id)
	if at < 0 || s.nodes[at].RepliesExpanded {
		return nil
	}

	s.splice(at+1, page, depth+1)
	s.nodes[at].RepliesExpanded = true
	s.nodes[at].LoadedReplies = len(page)

	return nil
}

// Collapse removes the node's loaded descendants from the sequence. The data
// stays on the server; a later Expand refetches it.
func (s *Session) Collapse(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.nodes) {
		return ErrIndexOutOfRange
	}

	node := s.nodes[index]
	s.removeDeeperRun(index)
	node.RepliesExpanded = false
	node.LoadedReplies = 0
	s.gen[node.Comment.ID]++

	return nil
}

// LoadMoreReplies fetches the node's next reply page and splices it in at the
// end of the node's contiguous descendant run.
func (s *Session) LoadMoreReplies(ctx context.Context, index int) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.nodes) {
		s.mu.Unlock()
		return ErrIndexOutOfRange
	}

	node := s.nodes[index]
	if !node.RepliesExpanded {
		s.mu.Unlock()
		return ErrNotExpanded
	}

	id := node.Comment.ID
	offset := node.LoadedReplies
	startGen := s.gen[id]
	s.mu.Unlock()

	page, err := s.fetcher.FetchReplies(ctx, id, s.pageSize, offset)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen[id] != startGen {
		return nil
	}
	at := s.indexOf(id)
	if at < 0 || !s.nodes[at].RepliesExpanded {
		return nil
	}

	s.splice(s.endOfRun(at), page, s.nodes[at].Depth+1)
	s.nodes[at].LoadedReplies += len(page)

	return nil
}

// HasMoreReplies reports whether the node has direct replies beyond the ones
// already spliced in.
func (s *Session) HasMoreReplies(index int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.nodes) {
		return false, ErrIndexOutOfRange
	}

	node := s.nodes[index]
	return node.LoadedReplies < node.TotalReplies(), nil
}

// InsertLocal splices in a comment the current user just created, before the
// server listing would reflect it. A root comment is prepended at depth 0; a
// reply lands right after its parent.
func (s *Session) InsertLocal(parentIndex *int, comment model.FullComment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if parentIndex == nil {
		s.nodes = append([]*Node{{FullComment: comment}}, s.nodes...)
		s.rootsLoaded++
		s.totalRoots++
		return nil
	}

	if *parentIndex < 0 || *parentIndex >= len(s.nodes) {
		return ErrIndexOutOfRange
	}

	parent := s.nodes[*parentIndex]
	node := &Node{FullComment: comment, Depth: parent.Depth + 1}
	s.nodes = append(s.nodes, nil)
	copy(s.nodes[*parentIndex+2:], s.nodes[*parentIndex+1:])
	s.nodes[*parentIndex+1] = node

	parent.Comment.ChildrenIDs = append(parent.Comment.ChildrenIDs, comment.Comment.ID)
	parent.RepliesExpanded = true
	parent.LoadedReplies++

	return nil
}

// RemoveLocal mirrors a successful delete: the node leaves the sequence and,
// when cascade is set, its loaded descendants go with it.
func (s *Session) RemoveLocal(index int, cascade bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.nodes) {
		return ErrIndexOutOfRange
	}

	node := s.nodes[index]
	if cascade {
		s.removeDeeperRun(index)
	}
	s.gen[node.Comment.ID]++

	if parentIndex, ok := s.parentIndex(index); ok {
		parent := s.nodes[parentIndex]
		children := parent.Comment.ChildrenIDs[:0]
		for _, childID := range parent.Comment.ChildrenIDs {
			if childID != node.Comment.ID {
				children = append(children, childID)
			}
		}
		parent.Comment.ChildrenIDs = children
		if parent.LoadedReplies > 0 {
			parent.LoadedReplies--
		}
	}

	s.nodes = append(s.nodes[:index], s.nodes[index+1:]...)

	if node.Depth == 0 {
		s.rootsLoaded--
		if s.totalRoots > 0 {
			s.totalRoots--
		}
	}

	return nil
}

// ParentIndex finds the nearest preceding node with a strictly lower depth.
// A node whose parent is not part of the loaded view reports ok = false.
func (s *Session) ParentIndex(index int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.nodes) {
		return 0, false
	}
	return s.parentIndex(index)
}

func (s *Session) parentIndex(index int) (int, bool) {
	depth := s.nodes[index].Depth
	for i := index - 1; i >= 0; i-- {
		if s.nodes[i].Depth < depth {
			return i, true
		}
	}
	return 0, false
}

func (s *Session) indexOf(id int64) int {
	for i, node := range s.nodes {
		if node.Comment.ID == id {
			return i
		}
	}
	return -1
}

// endOfRun returns the position right after the node's contiguous run of
// loaded descendants.
func (s *Session) endOfRun(index int) int {
	depth := s.nodes[index].Depth
	i := index + 1
	for i < len(s.nodes) && s.nodes[i].Depth > depth {
		i++
	}
	return i
}

func (s *Session) removeDeeperRun(index int) {
	end := s.endOfRun(index)
	s.nodes = append(s.nodes[:index+1], s.nodes[end:]...)
}

func (s *Session) splice(at int, page []*model.FullComment, depth int) {
	inserted := make([]*Node, len(page))
	for i, comment := range page {
		inserted[i] = &Node{FullComment: *comment, Depth: depth}
	}

	s.nodes = append(s.nodes[:at], append(inserted, s.nodes[at:]...)...)
}
