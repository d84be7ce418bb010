package crawler

// frontier is the BFS work queue of a single crawl. Every URL is admitted at
// most once, so a URL can never be fetched twice within one crawl.
type frontier struct {
	queue   []string
	seen    map[string]struct{}
	visited map[string]struct{}
}

func newFrontier() *frontier {
	return &frontier{
		seen:    make(map[string]struct{}),
		visited: make(map[string]struct{}),
	}
}

// Push enqueues url unless it was already admitted. It reports whether the
// URL was added.
func (f *frontier) Push(url string) bool {
	if url == "" {
		return false
	}
	if _, ok := f.seen[url]; ok {
		return false
	}
	f.seen[url] = struct{}{}
	f.queue = append(f.queue, url)
	return true
}

// Claim admits url without queueing it and marks it visited, e.g. the target
// of a redirect that was already fetched. A queued copy is skipped on Pop.
func (f *frontier) Claim(url string) {
	if url == "" {
		return
	}
	f.seen[url] = struct{}{}
	f.visited[url] = struct{}{}
}

// Pop removes the oldest pending URL.
func (f *frontier) Pop() (string, bool) {
	if len(f.queue) == 0 {
		return "", false
	}
	next := f.queue[0]
	f.queue[0] = ""
	f.queue = f.queue[1:]
	return next, true
}

func (f *frontier) MarkVisited(url string) {
	f.visited[url] = struct{}{}
}

func (f *frontier) Visited(url string) bool {
	_, ok := f.visited[url]
	return ok
}

func (f *frontier) Pending() int {
	return len(f.queue)
}
