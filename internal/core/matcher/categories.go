package matcher

import "strings"

// semanticCategory 食材語意類別
type semanticCategory struct {
	name     string
	keywords []string // 類別成員詞
	related  []string // 相關但非成員的詞
}

// 固定類別表，用於候選擴展與類別層級比對
var ingredientCategories = []semanticCategory{
	{
		name:     "seafood",
		keywords: []string{"ikan", "salmon", "tuna", "tongkol", "lele", "gurame", "udang", "cumi", "kepiting", "kerang"},
		related:  []string{"seafood", "laut", "bakar", "asam manis"},
	},
	{
		name:     "poultry",
		keywords: []string{"ayam", "bebek", "ayam kampung", "dada ayam", "paha ayam", "sayap ayam"},
		related:  []string{"unggas", "goreng", "bakar", "opor"},
	},
	{
		name:     "red_meat",
		keywords: []string{"sapi", "daging sapi", "kambing", "daging kambing", "iga", "buntut"},
		related:  []string{"daging", "rendang", "semur", "sop"},
	},
	{
		name:     "vegetarian_protein",
		keywords: []string{"tahu", "tempe", "telur", "jamur", "kacang", "edamame"},
		related:  []string{"vegetarian", "nabati", "goreng", "bacem"},
	},
	{
		name:     "carbohydrate",
		keywords: []string{"nasi", "mie", "bihun", "kwetiau", "pasta", "kentang", "singkong", "jagung"},
		related:  []string{"karbohidrat", "goreng", "rebus"},
	},
	{
		name:     "vegetables",
		keywords: []string{"kangkung", "bayam", "brokoli", "wortel", "buncis", "sawi", "terong", "labu", "sayur"},
		related:  []string{"sayuran", "tumis", "cap cay", "sop"},
	},
}

// 廣域搜尋時每個類別保留的關鍵字數
const broadKeywordsPerCategory = 3

// categoryOf 回傳詞所屬的類別名稱，找不到回傳空字串
func categoryOf(term string) string {
	term = strings.ToLower(term)
	for _, cat := range ingredientCategories {
		for _, kw := range cat.keywords {
			if kw == term {
				return cat.name
			}
		}
	}
	return ""
}

// relatedCategoryOf 回傳詞作為相關詞所屬的類別名稱
func relatedCategoryOf(term string) string {
	term = strings.ToLower(term)
	for _, cat := range ingredientCategories {
		for _, rel := range cat.related {
			if rel == term {
				return cat.name
			}
		}
	}
	return ""
}

// expandTerms 將查詢詞展開為類別成員與相關詞
func expandTerms(terms []string) []string {
	expanded := append([]string{}, terms...)
	seen := map[string]bool{}
	for _, t := range terms {
		seen[strings.ToLower(t)] = true
	}
	for _, t := range terms {
		name := categoryOf(t)
		if name == "" {
			continue
		}
		for _, cat := range ingredientCategories {
			if cat.name != name {
				continue
			}
			for _, kw := range cat.keywords {
				if !seen[kw] {
					seen[kw] = true
					expanded = append(expanded, kw)
				}
			}
			for _, rel := range cat.related {
				if !seen[rel] {
					seen[rel] = true
					expanded = append(expanded, rel)
				}
			}
		}
	}
	return expanded
}

// broadTerms 廣域備援搜尋只取每個命中類別的前幾個關鍵字
func broadTerms(terms []string) []string {
	var broad []string
	seen := map[string]bool{}
	for _, t := range terms {
		name := categoryOf(t)
		if name == "" {
			continue
		}
		for _, cat := range ingredientCategories {
			if cat.name != name {
				continue
			}
			limit := broadKeywordsPerCategory
			if limit > len(cat.keywords) {
				limit = len(cat.keywords)
			}
			for _, kw := range cat.keywords[:limit] {
				if !seen[kw] {
					seen[kw] = true
					broad = append(broad, kw)
				}
			}
		}
	}
	return broad
}

// sameCategory 判斷兩詞是否屬於同一類別
func sameCategory(a, b string) bool {
	ca := categoryOf(a)
	return ca != "" && ca == categoryOf(b)
}

// relatedTerms 判斷兩詞是否為類別成員與其相關詞的關係
func relatedTerms(a, b string) bool {
	if ca := categoryOf(a); ca != "" && ca == relatedCategoryOf(b) {
		return true
	}
	if cb := categoryOf(b); cb != "" && cb == relatedCategoryOf(a) {
		return true
	}
	return false
}
