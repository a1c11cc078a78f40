package mw

import (
	"bytes"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

type cachedResponse struct {
	status  int
	headers http.Header
	body    []byte
}

type bodyCacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyCacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w bodyCacheWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// generations counts successful writes per owner while reads are in flight.
// A read only stores its response when no write finished since it began.
type generations struct {
	mu     sync.Mutex
	owners map[string]*ownerGeneration
}

type ownerGeneration struct {
	gen     uint64
	readers int
}

func newGenerations() *generations {
	return &generations{owners: make(map[string]*ownerGeneration)}
}

// begin registers a read and returns the generation it started in.
func (g *generations) begin(owner string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	o, ok := g.owners[owner]
	if !ok {
		o = &ownerGeneration{}
		g.owners[owner] = o
	}
	o.readers++
	return o.gen
}

// end runs store if the generation is still seen, then forgets the read.
func (g *generations) end(owner string, seen uint64, store func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	o := g.owners[owner]
	if o.gen == seen {
		store()
	}
	o.readers--
	if o.readers == 0 {
		delete(g.owners, owner)
	}
}

// bump invalidates reads in flight and runs purge under the same lock.
func (g *generations) bump(owner string, purge func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if o, ok := g.owners[owner]; ok {
		o.gen++
	}
	purge()
}

// Cache is a middleware for in-memory caching of an owner's GET responses.
// It must run after Auth. Any successful write by the owner drops every
// response cached for them, and a read that overlapped a write is not cached,
// so reads never outlive a transition.
func Cache(store *cache.Cache, duration time.Duration) gin.HandlerFunc {
	gens := newGenerations()
	return func(c *gin.Context) {
		user := User(c)
		if user == nil {
			c.Next()
			return
		}
		prefix := user.Token + "|"

		if c.Request.Method != http.MethodGet {
			c.Next()
			if s := c.Writer.Status(); s >= 200 && s < 300 {
				gens.bump(user.Token, func() { purge(store, prefix) })
			}
			return
		}

		key := prefix + c.Request.RequestURI
		if resp, found := store.Get(key); found {
			cached := resp.(cachedResponse)
			for k, v := range cached.headers {
				c.Writer.Header()[k] = v
			}
			c.Writer.Header().Set("X-Cache", "HIT")
			c.Writer.WriteHeader(cached.status)
			c.Writer.Write(cached.body)
			c.Abort()
			return
		}

		seen := gens.begin(user.Token)
		blw := &bodyCacheWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		gens.end(user.Token, seen, func() {
			// Only cache successful responses
			if blw.Status() >= 200 && blw.Status() < 300 {
				response := cachedResponse{
					status: blw.Status(),
					// Make a copy of the header map.
					headers: blw.Header().Clone(),
					body:    blw.body.Bytes(),
				}
				store.Set(key, response, duration)
			}
		})
	}
}

func purge(store *cache.Cache, prefix string) {
	for key := range store.Items() {
		if strings.HasPrefix(key, prefix) {
			store.Delete(key)
		}
	}
}
