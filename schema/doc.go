// Package schema describes the GraphQL type system the planner walks,
// annotated with relational metadata: table names, column mappings,
// join and batch strategies, unique keys and pagination settings.
//
// # Quick Start
//
// A Schema is usually loaded from SDL. Load prepends DirectiveSource, so the
// static settings can be written as directives:
//
//	type Query {
//	    user(id: Int): User
//	}
//
//	type User @sqlTable(name: "users", uniqueKey: ["id"]) {
//	    id: ID!
//	    email: String @sqlColumn(name: "email_address")
//	    posts: [Post] @sqlBatch(thisKey: "author_id", parentKey: "id")
//	}
//
//	s, src, err := schema.Load(nil, &ast.Source{Name: "schema.graphql", Input: sdl})
//
// The gqlparser schema returned by Load is the one queries are validated
// against.
//
// # Annotations
//
// Builder functions cannot live in SDL. They are attached with Annotations,
// keyed by type name and then by field name, and override directive
// settings:
//
//	s, _, err := schema.Load(schema.Annotations{
//	    "User": {
//	        Fields: map[string]schema.FieldAnnotation{
//	            "friends": {Join: func(ctx context.Context, parent, child string, args map[string]any) string {
//	                return parent + ".id = " + child + ".friend_of"
//	            }},
//	        },
//	    },
//	}, sources...)
//
// # Join Strategies
//
// A field whose type maps to a table needs exactly one strategy below the
// root:
//
//	Join      // one SQL join to the child table
//	Batch     // a keyed secondary fetch, matched on ThisKey = ParentKey
//	Junction  // a many-to-many bridge table, joined or batched
//
// JoinTable is the deprecated spelling of Junction. Plans built from it
// carry a DeprecationNotice.
//
// # Pagination
//
// Connection types (fields edges and pageInfo, node under edges) are
// unwrapped by the planner. Paginate enables keyset pagination with SortKey,
// or offset pagination when only OrderBy is set.
package schema
