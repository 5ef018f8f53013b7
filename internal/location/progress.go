package location

// Progress colours.
const (
	ColorNone     = "#FF4C4C"
	ColorPartial  = "#FFC107"
	ColorComplete = "#4CAF50"
)

// SiteStatus reports whether the donor has given blood at a site.
type SiteStatus struct {
	Location
	Visited bool   `json:"visited"`
	Count   int    `json:"donation_count"`
	Color   string `json:"color"`
}

type PrefectureProgress struct {
	Prefecture string       `json:"prefecture"`
	Visited    int          `json:"visited"`
	Total      int          `json:"total"`
	Ratio      float64      `json:"ratio"`
	Color      string       `json:"color"`
	Sites      []SiteStatus `json:"sites"`
}

type RegionProgress struct {
	Region      string               `json:"region"`
	Prefectures []PrefectureProgress `json:"prefectures"`
}

// Progress is the donor's coverage of the directory.
type Progress struct {
	Visited int              `json:"visited"`
	Total   int              `json:"total"`
	Sites   []SiteStatus     `json:"sites"`
	Regions []RegionProgress `json:"regions"`
}

// ComputeProgress marks each site visited when visits names it at least once.
// Regions list only prefectures that have sites; sites in prefectures outside
// Regions (including UnknownPrefecture) appear in Sites only.
func ComputeProgress(dir *Directory, visits map[string]int) Progress {
	progress := Progress{Sites: make([]SiteStatus, 0, dir.Len())}
	byPrefecture := make(map[string][]SiteStatus)

	for _, loc := range dir.locations {
		count := visits[loc.Name]
		status := SiteStatus{Location: loc, Visited: count > 0, Count: count, Color: ColorNone}
		if status.Visited {
			status.Color = ColorComplete
			progress.Visited++
		}
		progress.Total++
		progress.Sites = append(progress.Sites, status)
		byPrefecture[loc.Prefecture] = append(byPrefecture[loc.Prefecture], status)
	}

	progress.Regions = make([]RegionProgress, 0, len(Regions))
	for _, region := range Regions {
		rp := RegionProgress{Region: region.Name, Prefectures: []PrefectureProgress{}}
		for _, pref := range region.Prefectures {
			sites, ok := byPrefecture[pref]
			if !ok {
				continue
			}
			rp.Prefectures = append(rp.Prefectures, prefectureProgress(pref, sites))
		}
		progress.Regions = append(progress.Regions, rp)
	}
	return progress
}

func prefectureProgress(pref string, sites []SiteStatus) PrefectureProgress {
	pp := PrefectureProgress{Prefecture: pref, Total: len(sites), Sites: sites}
	for _, s := range sites {
		if s.Visited {
			pp.Visited++
		}
	}
	pp.Ratio = float64(pp.Visited) / float64(pp.Total)
	switch pp.Visited {
	case 0:
		pp.Color = ColorNone
	case pp.Total:
		pp.Color = ColorComplete
	default:
		pp.Color = ColorPartial
	}
	return pp
}
