// Package blueprint provides the Blueprint and Book containers.
//
// A [Blueprint] owns one [graph.Graph] and the [history.Engine] recording its
// edits. A [Book] owns an ordered list of items (blueprints or nested books)
// and an active index. Both carry [Meta]: label, description, up to four icons
// and the game version they were exported with.
//
// Switching a book's active index never touches any blueprint's history; each
// blueprint keeps its own undo timeline for the whole session.
package blueprint
