package service

// normalisePage applies the listing defaults: page 1, size 10, at most 100 rows.
func normalisePage(page, size int) (int, int) {
	if page < 1 {
		page = DefaultSearchPage
	}
	if size < 1 {
		size = DefaultSearchSize
	}
	if size > MaxSearchSize {
		size = MaxSearchSize
	}
	return page, size
}
