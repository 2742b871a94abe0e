package planner

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/syssam/joinplan"
	"github.com/syssam/joinplan/schema"
	"github.com/syssam/joinplan/shape"
	"github.com/syssam/joinplan/sqlast"
)

const testSDL = `
type Query {
  user(id: Int): User
  users(filter: UserFilter, ids: [Int], ratio: Float, active: Boolean, name: String, kind: Kind, nothing: String): [User!]!
  search(term: String): [SearchResult]
  nodes: [Node]
  legacySearch: [LegacyResult]
  shard(region: String!): Shard
  orphan: Orphan
  version: String
}

type Mutation {
  touch: String
}

enum Kind {
  ADMIN
  MEMBER
}

input UserFilter {
  name: String
  minAge: Int
}

interface Node @sqlTable(name: "nodes", uniqueKey: ["id"]) {
  id: ID!
}

type User implements Node @sqlTable(name: "users", uniqueKey: ["id"]) {
  id: ID!
  email: String
  createdAt: String
  fullName: String @sqlDeps(names: ["first_name", "last_name"]) @resolver
  displayName: String @sqlDeps(names: ["first_name"]) @resolver
  nickname: String @resolver
  initials: String @resolver
  numPosts: Int
  internal: String @jmIgnoreAll
  posts: [Post!] @sqlBatch(thisKey: "author_id", parentKey: "id")
  friends: [User]
  following: [User]
  followers: [User]
  legacyFollowing: [User]
  related: [SearchResult]
  feed(first: Int, after: String): PostConnection @sqlPaginate @sortKey(order: "desc", key: ["created_at", "id"])
  timeline: PostConnection @sqlPaginate @orderBy(column: "created_at", direction: "desc")
  drafts: PostConnection @sqlPaginate
  archive: PostConnection
  recent: [Post] @sqlPaginate
  pinned: Post
  preview: Post @jmIgnoreTable @resolver
  profile: Post @jmIgnoreTable
  both: [Post] @sqlBatch(thisKey: "author_id", parentKey: "id")
  blocked: [User]
}

type Post implements Node @sqlTable(name: "posts", uniqueKey: ["id"]) {
  id: ID!
  title: String
  body: String
  author: User
}

type PostConnection {
  edges: [PostEdge]
  pageInfo: PageInfo!
}

type PostEdge {
  cursor: String
  node: Post
}

type PageInfo {
  hasNextPage: Boolean!
}

union SearchResult @sqlTable(name: "search_index", uniqueKey: ["kind", "ref_id"], alwaysFetch: ["kind"]) = User | Post

union LegacyResult @sqlTable(name: "legacy_index", uniqueKey: ["id"], typeHint: "kind") = User | Post

type Shard {
  id: ID!
  name: String
}

type Orphan {
  id: ID!
}
`

type tenantKey struct{}

func join(_ context.Context, parent, child string, _ map[string]any) string {
	return parent + ".id = " + child + ".parent_id"
}

func testAnnotations() schema.Annotations {
	return schema.Annotations{
		"User": {Fields: map[string]schema.FieldAnnotation{
			"numPosts": {Expr: func(_ context.Context, table string, _ map[string]any) string {
				return "(SELECT count(*) FROM posts WHERE posts.author_id = " + table + ".id)"
			}},
			"nickname": {Deps: map[string]string{"first_name": "given_name"}},
			"friends":  {Join: join},
			"following": {Junction: &schema.Junction{
				Table: "relationships",
				Key:   []string{"follower_id", "followee_id"},
				Batch: &schema.JunctionBatch{ThisKey: "follower_id", ParentKey: "id", Join: join},
			}},
			"followers": {Junction: &schema.Junction{
				Table: "relationships",
				Joins: &schema.JunctionJoins{ToJunction: join, FromJunction: join},
			}},
			"legacyFollowing": {JoinTable: &schema.Junction{
				Table: "relationships",
				Joins: &schema.JunctionJoins{ToJunction: join, FromJunction: join},
			}},
			"related":  {Join: join},
			"feed":     {Join: join},
			"timeline": {Join: join},
			"drafts":   {Join: join},
			"archive":  {Join: join},
			"both":     {Join: join},
			"blocked":  {Junction: &schema.Junction{Table: "blocks"}},
		}},
		"Post": {Fields: map[string]schema.FieldAnnotation{
			"author": {Join: join},
		}},
		"Shard": {
			TableFunc: func(ctx context.Context, args map[string]any) string {
				name := "shard_" + args["region"].(string)
				if tenant, ok := ctx.Value(tenantKey{}).(string); ok {
					name += "_" + tenant
				}
				return name
			},
			UniqueKey: []string{"id"},
		},
		"Orphan": {Table: "orphans"},
	}
}

func loadSchema(t *testing.T) (*schema.Schema, *ast.Schema) {
	t.Helper()
	s, src, err := schema.Load(testAnnotations(), &ast.Source{Name: "planner_test.graphql", Input: testSDL})
	require.NoError(t, err)
	return s, src
}

func quiet() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func request(t *testing.T, s *schema.Schema, query string, vars map[string]any) Request {
	t.Helper()
	doc, err := parser.ParseQuery(&ast.Source{Input: query})
	require.Nil(t, err)
	req, err := RequestFromDocument(s, doc, "", vars)
	require.NoError(t, err)
	return req
}

func compile(t *testing.T, query string, opts ...Option) (*Plan, error) {
	t.Helper()
	s, _ := loadSchema(t)
	req := request(t, s, query, nil)
	return Compile(context.Background(), s, req, append([]Option{WithLogger(quiet())}, opts...)...)
}

func mustCompile(t *testing.T, query string, opts ...Option) *Plan {
	t.Helper()
	p, err := compile(t, query, opts...)
	require.NoError(t, err)
	require.NotNil(t, p.AST)
	return p
}

func table(t *testing.T, n sqlast.Node) *sqlast.Table {
	t.Helper()
	tbl, ok := n.(*sqlast.Table)
	require.Truef(t, ok, "want *sqlast.Table, got %T", n)
	return tbl
}

// child returns the Table or Union planned for field.
func child(t *testing.T, children []sqlast.Node, field string) sqlast.Node {
	t.Helper()
	i := findRelation(children, field)
	require.GreaterOrEqual(t, i, 0, "no relation %q", field)
	return children[i]
}

func fieldNames(children []sqlast.Node) []string {
	names := make([]string, 0, len(children))
	for _, n := range children {
		names = append(names, n.Head().FieldName)
	}
	return names
}

func aliases(children []sqlast.Node) []string {
	out := make([]string, 0, len(children))
	for _, n := range children {
		out = append(out, n.Head().As)
	}
	return out
}

func TestCompileUserEmail(t *testing.T) {
	t.Parallel()

	p := mustCompile(t, `{ user(id: 5) { email } }`)
	root := table(t, p.AST)
	assert.Equal(t, "users", root.Name)
	assert.Equal(t, "user", root.FieldName)
	assert.Equal(t, "user", root.As)
	assert.False(t, root.GrabMany)
	assert.Equal(t, map[string]any{"id": int64(5)}, root.Args)
	assert.Nil(t, root.Join)
	assert.Nil(t, root.Batch)
	assert.Nil(t, root.Junction)

	require.Len(t, root.Children, 3)
	assert.Equal(t, &sqlast.Column{Header: sqlast.Header{FieldName: "email", As: "email"}, Name: "email"}, root.Children[0])
	assert.Equal(t, &sqlast.Column{Header: sqlast.Header{FieldName: "id", As: "id"}, Name: "id"}, root.Children[1])
	assert.IsType(t, &sqlast.ColumnDeps{}, root.Children[2])
	assert.Empty(t, p.Notices)

	s, err := shape.Define(p.AST)
	require.NoError(t, err)
	assert.Equal(t, []shape.Entry{{Key: "email", Alias: "email"}, {Key: "id", Alias: "id"}}, s.Fields)
	assert.False(t, s.Many)
}

func TestCompileBatch(t *testing.T) {
	t.Parallel()

	p := mustCompile(t, `{ user(id: 1) { posts { title } } }`)
	root := table(t, p.AST)
	assert.Equal(t, []string{"posts", "id", ""}, fieldNames(root.Children))

	posts := table(t, child(t, root.Children, "posts"))
	assert.True(t, posts.GrabMany)
	assert.Equal(t, "posts", posts.Name)
	require.NotNil(t, posts.Batch)
	assert.Equal(t, &sqlast.Column{Header: sqlast.Header{FieldName: "author_id", As: "author_id"}, Name: "author_id"}, posts.Batch.ThisKey)
	assert.Equal(t, &sqlast.Column{Header: sqlast.Header{FieldName: "id", As: "id_1"}, Name: "id"}, posts.Batch.ParentKey)
	assert.Equal(t, []string{"title", "id_2", ""}, aliases(posts.Children))

	rootShape, err := shape.Define(root)
	require.NoError(t, err)
	_, ok := rootShape.Lookup("posts")
	assert.False(t, ok, "batched relations are attached by the materializer")
	key, ok := rootShape.Lookup(posts.Batch.ParentKey.FieldName)
	require.True(t, ok)
	assert.NotEmpty(t, key.Alias)

	postShape, err := shape.Define(posts)
	require.NoError(t, err)
	assert.True(t, postShape.Many)
	title, ok := postShape.Lookup("title")
	require.True(t, ok)
	assert.Equal(t, "title", title.Alias)
}

func TestCompileSiblingSelections(t *testing.T) {
	t.Parallel()

	p := mustCompile(t, `{ user(id: 1) { posts { title } posts { body } } }`)
	root := table(t, p.AST)

	n := 0
	for _, c := range root.Children {
		if r, ok := sqlast.AsRelation(c); ok && r.FieldName == "posts" {
			n++
		}
	}
	assert.Equal(t, 1, n)

	posts := table(t, child(t, root.Children, "posts"))
	assert.Equal(t, "posts", posts.As)
	assert.Equal(t, []string{"title", "id", "body", ""}, fieldNames(posts.Children))
}

func TestCompileJoin(t *testing.T) {
	t.Parallel()

	p := mustCompile(t, `{ user(id: 1) { friends { email } } }`)
	friends := table(t, child(t, table(t, p.AST).Children, "friends"))
	assert.True(t, friends.GrabMany)
	require.NotNil(t, friends.Join)
	assert.Equal(t, "user.id = friends.parent_id", friends.Join(context.Background(), "user", "friends", nil))
	assert.Equal(t, []string{"email", "id", ""}, fieldNames(friends.Children))

	s, err := shape.Define(p.AST)
	require.NoError(t, err)
	sub, ok := s.Lookup("friends")
	require.True(t, ok)
	require.NotNil(t, sub.Sub)
	assert.True(t, sub.Sub.Many)
	email, ok := sub.Sub.Lookup("email")
	require.True(t, ok)
	assert.Equal(t, "friends__email", email.Alias)
}

func TestCompileJunctionBatch(t *testing.T) {
	t.Parallel()

	p := mustCompile(t, `{ user(id: 1) { following { email } } }`)
	following := table(t, child(t, table(t, p.AST).Children, "following"))
	require.NotNil(t, following.Junction)
	j := following.Junction
	assert.Equal(t, "relationships", j.Table)
	assert.Equal(t, "relationships", j.As)
	assert.Nil(t, j.Joins)
	require.NotNil(t, j.Batch)
	assert.Equal(t, "relationships", j.Batch.ThisKey.FromOtherTable)
	assert.Equal(t, "follower_id", j.Batch.ThisKey.Name)
	assert.Empty(t, j.Batch.ParentKey.FromOtherTable)
	assert.Equal(t, "id_1", j.Batch.ParentKey.As)
	assert.NotNil(t, j.Batch.Join)

	require.Len(t, following.Children, 4)
	key, ok := following.Children[1].(*sqlast.Composite)
	require.True(t, ok)
	assert.Equal(t, "fol#fol", key.FieldName)
	assert.Equal(t, "fol_fol", key.As)
	assert.Equal(t, []string{"follower_id", "followee_id"}, key.Names)
	assert.Equal(t, "relationships", key.FromOtherTable)

	s, err := shape.Define(p.AST)
	require.NoError(t, err)
	_, ok = s.Lookup("following")
	assert.False(t, ok)
}

func TestCompileJunctionJoins(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	p := mustCompile(t, `{ user(id: 1) { followers { email } legacyFollowing { email } } }`, WithLogger(logger))
	root := table(t, p.AST)

	followers := table(t, child(t, root.Children, "followers"))
	require.NotNil(t, followers.Junction)
	assert.Equal(t, "relationships", followers.Junction.As)
	assert.NotNil(t, followers.Junction.Joins)
	assert.Nil(t, followers.Junction.Batch)
	assert.Equal(t, []string{"email", "id", ""}, fieldNames(followers.Children))

	legacy := table(t, child(t, root.Children, "legacyFollowing"))
	require.NotNil(t, legacy.Junction)
	assert.Equal(t, "relationships_1", legacy.Junction.As)

	assert.Equal(t, []joinplan.DeprecationNotice{joinplan.NoticeJoinTable}, p.Notices)
	assert.Contains(t, buf.String(), "deprecated configuration")
	assert.Contains(t, buf.String(), `"feature":"joinTable"`)
}

func TestCompileExpression(t *testing.T) {
	t.Parallel()

	p := mustCompile(t, `{ user(id: 1) { numPosts } }`)
	root := table(t, p.AST)
	expr, ok := root.Children[0].(*sqlast.Expression)
	require.True(t, ok)
	assert.Equal(t, "numPosts", expr.FieldName)
	assert.Equal(t, "numPosts", expr.As)
	require.NotNil(t, expr.Expr)
	assert.Equal(t, "(SELECT count(*) FROM posts WHERE posts.author_id = user.id)", expr.Expr(context.Background(), root.As, expr.Args))
}

func TestCompileIgnored(t *testing.T) {
	t.Parallel()

	p := mustCompile(t, `{ user(id: 1) { __typename internal initials preview profile } }`)
	root := table(t, p.AST)
	require.Len(t, root.Children, 7)
	for _, n := range root.Children[:4] {
		assert.IsType(t, &sqlast.Noop{}, n)
	}
	assert.Equal(t, &sqlast.Column{Header: sqlast.Header{FieldName: "profile", As: "profile"}, Name: "profile"}, root.Children[4])
}

func TestCompileColumnNaming(t *testing.T) {
	t.Parallel()

	p := mustCompile(t, `{ user(id: 1) { createdAt } }`)
	assert.Equal(t, "createdAt", table(t, p.AST).Children[0].(*sqlast.Column).Name)

	p = mustCompile(t, `{ user(id: 1) { createdAt } }`, WithColumnNaming(ColumnNamingSnake))
	col := table(t, p.AST).Children[0].(*sqlast.Column)
	assert.Equal(t, "created_at", col.Name)
	assert.Equal(t, "createdAt", col.FieldName)
}

func TestCompileMinify(t *testing.T) {
	t.Parallel()

	for _, opts := range [][]Option{
		{WithMinify(true)},
		{WithDialect("oracle")},
	} {
		p := mustCompile(t, `{ user(id: 1) { email } }`, opts...)
		root := table(t, p.AST)
		assert.Equal(t, "a", root.As)
		assert.Equal(t, []string{"b", "a", ""}, aliases(root.Children))
	}
}

func TestCompileTableFunc(t *testing.T) {
	t.Parallel()

	s, _ := loadSchema(t)
	req := request(t, s, `{ shard(region: "eu") { name } }`, nil)
	ctx := context.WithValue(context.Background(), tenantKey{}, "acme")
	p, err := Compile(ctx, s, req, WithLogger(quiet()))
	require.NoError(t, err)
	assert.Equal(t, "shard_eu_acme", table(t, p.AST).Name)
}

func TestCompileValidatedDocument(t *testing.T) {
	t.Parallel()

	s, src := loadSchema(t)
	doc, errs := gqlparser.LoadQuery(src, `
		query One($id: Int) { user(id: $id) { ...UserBits } }
		fragment UserBits on User { email }
	`)
	require.Empty(t, errs)
	req, err := RequestFromDocument(s, doc, "One", map[string]any{"id": 7})
	require.NoError(t, err)

	p, err := Compile(context.Background(), s, req, WithLogger(quiet()))
	require.NoError(t, err)
	root := table(t, p.AST)
	assert.Equal(t, map[string]any{"id": 7}, root.Args)
	assert.Equal(t, []string{"email", "id", ""}, fieldNames(root.Children))
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
		want  error
	}{
		{"UnknownField", `{ user(id: 1) { nope } }`, joinplan.ErrUnknownField},
		{"RootNotTable", `{ version }`, joinplan.ErrRootNotTable},
		{"MissingUniqueKey", `{ orphan { id } }`, joinplan.ErrMissingUniqueKey},
		{"MissingJoin", `{ user(id: 1) { pinned { title } } }`, joinplan.ErrMissingJoin},
		{"AmbiguousJoin", `{ user(id: 1) { both { title } } }`, joinplan.ErrAmbiguousJoin},
		{"MissingJunctionJoin", `{ user(id: 1) { blocked { email } } }`, joinplan.ErrMissingJunctionJoin},
		{"MissingSortKey", `{ user(id: 1) { drafts { edges { node { title } } } } }`, joinplan.ErrMissingSortKey},
		{"NotConnection", `{ user(id: 1) { recent { title } } }`, joinplan.ErrNotConnection},
		{"UnknownFragment", `{ user(id: 1) { ...Missing } }`, joinplan.ErrUnknownFragment},
		{"UnknownTypeCondition", `{ search { ... on Ghost { id } } }`, joinplan.ErrUnknownType},
		{"RootFieldCount", `{ user(id: 1) { email } users { email } }`, joinplan.ErrRootFieldCount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := compile(t, tt.query)
			require.Error(t, err)
			assert.Nil(t, p)
			assert.True(t, joinplan.IsSchemaMappingError(err), err.Error())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCompileUnknownParentType(t *testing.T) {
	t.Parallel()

	s, _ := loadSchema(t)
	_, err := Compile(context.Background(), s, Request{ParentType: "Nope", Fields: []*ast.Field{{Name: "user"}}}, WithLogger(quiet()))
	assert.ErrorIs(t, err, joinplan.ErrUnknownType)
}

func TestCompileOptionErrors(t *testing.T) {
	t.Parallel()

	_, err := compile(t, `{ user(id: 1) { email } }`, WithDialect("db2"))
	assert.True(t, joinplan.IsConfigError(err))

	_, err = compile(t, `{ user(id: 1) { email } }`, WithLogger(nil))
	assert.True(t, joinplan.IsConfigError(err))
}

func TestCompileAll(t *testing.T) {
	t.Parallel()

	s, _ := loadSchema(t)
	reqs := []Request{
		request(t, s, `{ users { email } }`, nil),
		request(t, s, `{ search { ... on Post { title } } }`, nil),
		request(t, s, `{ user(id: 1) { email } }`, nil),
	}
	plans, err := CompileAll(context.Background(), s, reqs, WithLogger(quiet()))
	require.NoError(t, err)
	require.Len(t, plans, 3)

	names := make([]string, 0, len(plans))
	for _, p := range plans {
		r, ok := sqlast.AsRelation(p.AST)
		require.True(t, ok)
		names = append(names, r.Name)
		// Every compilation owns its namespace.
		assert.Equal(t, r.FieldName, r.As)
	}
	assert.Equal(t, []string{"users", "search_index", "users"}, names)

	reqs = append(reqs, request(t, s, `{ version }`, nil))
	_, err = CompileAll(context.Background(), s, reqs, WithLogger(quiet()))
	assert.ErrorIs(t, err, joinplan.ErrRootNotTable)
}

func TestCompileAllConcurrent(t *testing.T) {
	t.Parallel()

	s, _ := loadSchema(t)
	reqs := make([]Request, 24)
	for i := range reqs {
		reqs[i] = request(t, s, `{ user(id: 1) { email friends { email } } }`, nil)
	}
	plans, err := CompileAll(context.Background(), s, reqs, WithLogger(quiet()))
	require.NoError(t, err)
	require.Len(t, plans, len(reqs))

	want := sqlast.Dump(plans[0].AST)
	for _, p := range plans[1:] {
		assert.Equal(t, want, sqlast.Dump(p.AST))
	}
}

func TestRequestFromDocument(t *testing.T) {
	t.Parallel()

	s, _ := loadSchema(t)
	parse := func(q string) *ast.QueryDocument {
		doc, err := parser.ParseQuery(&ast.Source{Input: q})
		require.Nil(t, err)
		return doc
	}

	doc := parse(`query A { user(id: 1) { email } } query B { users { email } }`)
	_, err := RequestFromDocument(s, doc, "", nil)
	assert.Error(t, err)

	req, err := RequestFromDocument(s, doc, "B", nil)
	require.NoError(t, err)
	assert.Equal(t, "Query", req.ParentType)
	require.Len(t, req.Fields, 1)
	assert.Equal(t, "users", req.Fields[0].Name)

	_, err = RequestFromDocument(s, doc, "C", nil)
	assert.Error(t, err)

	_, err = RequestFromDocument(s, parse(`mutation M { touch }`), "", nil)
	assert.Error(t, err)
}
