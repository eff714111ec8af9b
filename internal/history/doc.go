// Package history records predictions and serves the analytics built on
// top of them.
//
// The service layer owns paging rules and the aggregate shapes. It
// depends on the Repository interface defined in this package; the
// SQLite implementation lives in repository/sqlite/.
package history
