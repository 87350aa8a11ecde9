// Package invoice defines the task/item data model shared by the recognition,
// naming, planning, and rename stages, including the closed status, action,
// conflict, and result enumerations.
package invoice
