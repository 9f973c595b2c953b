package vfplanner

import "sort"

func sortStrings(ss []string) { sort.Strings(ss) }
