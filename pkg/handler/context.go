package handler

// DI for all handlers alike.

import (
	ggdb "github.com/yumyai/swarmtable/pkg/db"
)

type DBContext struct {
	Store *ggdb.OTUDB
}
