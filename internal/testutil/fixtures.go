package testutil

import "strings"

// PhoibleHeader is the header of the fixture inventory table: eleven metadata
// columns, eight features and the trailing marker column.
const PhoibleHeader = "InventoryID,Glottocode,ISO6393,LanguageName,SpecificDialect,GlyphID,Phoneme,Allophones,Marginal,SegmentClass,Source," +
	"tone,syllabic,long,consonantal,anterior,front,back,dorsal,Marker"

// PhoibleRows are the fixture records.
//
// Inventory 1 (English) has a, s, t and a tone row.
// Inventory 2 (Mandarin) has i, the laminal s̻, a conflicting second
// attestation of s (anterior +) and a no-segment marker row.
// Inventory 3 uses a glottocode unknown to the genealogy fixtures.
// Inventory 4 has only a marker row.
var PhoibleRows = []string{
	"1,stan1293,eng,English,,0061,a,a,FALSE,vowel,spa,0,+,-,-,0,-,+,+,Y",
	"1,stan1293,eng,English,,0073,s,s,FALSE,consonant,spa,0,-,-,+,-,0,0,0,Y",
	"1,stan1293,eng,English,,0074,t,t,FALSE,consonant,spa,0,-,-,+,+,0,0,0,Y",
	"1,stan1293,eng,English,,02E5,˥,,FALSE,tone,spa,+,0,0,0,0,0,0,0,Y",
	"2,mand1415,cmn,Mandarin,Beijing,0069,i,i,FALSE,vowel,upsid,0,+,-,-,0,+,-,+,Y",
	"2,mand1415,cmn,Mandarin,Beijing,0073+033B,s̻,,FALSE,consonant,upsid,0,-,-,+,+,0,0,0,Y",
	"2,mand1415,cmn,Mandarin,Beijing,0073,s,s,FALSE,consonant,upsid,0,-,-,+,+,0,0,0,Y",
	"2,mand1415,cmn,Mandarin,Beijing,,,,,,upsid,0,0,0,0,0,0,0,0,N",
	"3,xxxx1234,xxx,Isolate,,0061,a,a,FALSE,vowel,ph,0,+,-,-,0,-,+,+,Y",
	"4,nole1234,nol,Markers Only,,,,,,,ph,0,0,0,0,0,0,0,0,N",
}

// PhoibleCSV returns the fixture inventory table as CSV text.
func PhoibleCSV() string {
	return PhoibleHeader + "\n" + strings.Join(PhoibleRows, "\n") + "\n"
}

// LanguoidCSV is a glottolog-style languoid table.
// stan1293 descends Indo-European > Germanic > West Germanic.
const LanguoidCSV = `id,family_id,parent_id,name,latitude,longitude,country_ids
indo1319,,,Indo-European,,,
germ1287,indo1319,indo1319,Germanic,,,
west2793,indo1319,germ1287,West Germanic,,,
stan1293,indo1319,west2793,English,53.0,-1.0,GB US
sino1245,,,Sino-Tibetan,,,
mand1415,sino1245,sino1245,Mandarin Chinese,40.02,116.23,CN
`

// GeoCSV is a glottolog-style languages_and_dialects_geo table.
const GeoCSV = `glottocode,name,isocodes,level,macroarea,latitude,longitude
stan1293,English,eng,language,Eurasia,53.0,-1.0
mand1415,Mandarin Chinese,cmn,language,Eurasia,40.02,116.23
`
