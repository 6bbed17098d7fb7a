package shiptype

// classRanges covers blocks of consecutive type ids that share a hull class.
// Ranges must not overlap.
var classRanges = []idRange{
	{582, 609, ClassFrigate},
	{620, 634, ClassCruiser},
	{638, 645, ClassBattleship},
	{648, 657, ClassIndustrial},
	{670, 670, ClassCapsule},
	{11172, 11202, ClassFrigate},
	{11365, 11400, ClassFrigate},
	{11957, 11999, ClassCruiser},
	{12003, 12023, ClassCruiser},
	{12032, 12044, ClassFrigate},
	{16227, 16233, ClassBattlecruiser},
	{16236, 16242, ClassDestroyer},
	{19720, 19726, ClassCapital},
	{23757, 23919, ClassCapital},
	{24688, 24694, ClassBattleship},
	{24696, 24702, ClassBattlecruiser},
	{33328, 33328, ClassCapsule},
	{35832, 35836, ClassStructure},
}

// knownHulls pins hulls whose role differs from their class default, plus
// the supercapitals that sit inside capital id blocks.
var knownHulls = map[int64]hull{
	// logistics
	582:   {ClassFrigate, RoleLogistics}, // Bantam
	590:   {ClassFrigate, RoleLogistics}, // Inquisitor
	592:   {ClassFrigate, RoleLogistics}, // Navitas
	599:   {ClassFrigate, RoleLogistics}, // Burst
	620:   {ClassCruiser, RoleLogistics}, // Osprey
	625:   {ClassCruiser, RoleLogistics}, // Augoror
	631:   {ClassCruiser, RoleLogistics}, // Scythe
	634:   {ClassCruiser, RoleLogistics}, // Exequror
	11978: {ClassCruiser, RoleLogistics}, // Scimitar
	11985: {ClassCruiser, RoleLogistics}, // Basilisk
	11987: {ClassCruiser, RoleLogistics}, // Guardian
	11989: {ClassCruiser, RoleLogistics}, // Oneiros
	37457: {ClassFrigate, RoleLogistics}, // Deacon
	37458: {ClassFrigate, RoleLogistics}, // Kirin
	37459: {ClassFrigate, RoleLogistics}, // Thalia
	37460: {ClassFrigate, RoleLogistics}, // Scalpel
	37604: {ClassCapital, RoleLogistics}, // Apostle
	37605: {ClassCapital, RoleLogistics}, // Minokawa
	37606: {ClassCapital, RoleLogistics}, // Lif
	37607: {ClassCapital, RoleLogistics}, // Ninazu

	// electronic warfare
	584:   {ClassFrigate, RoleEWAR}, // Griffin
	609:   {ClassFrigate, RoleEWAR}, // Maulus
	2161:  {ClassFrigate, RoleEWAR}, // Crucifier
	3766:  {ClassFrigate, RoleEWAR}, // Vigil
	628:   {ClassCruiser, RoleEWAR}, // Arbitrator
	630:   {ClassCruiser, RoleEWAR}, // Bellicose
	632:   {ClassCruiser, RoleEWAR}, // Blackbird
	633:   {ClassCruiser, RoleEWAR}, // Celestis
	11957: {ClassCruiser, RoleEWAR}, // Falcon
	11959: {ClassCruiser, RoleEWAR}, // Rook
	11961: {ClassCruiser, RoleEWAR}, // Huginn
	11963: {ClassCruiser, RoleEWAR}, // Rapier
	11965: {ClassCruiser, RoleEWAR}, // Pilgrim
	11969: {ClassCruiser, RoleEWAR}, // Arazu
	11971: {ClassCruiser, RoleEWAR}, // Lachesis
	20125: {ClassCruiser, RoleEWAR}, // Curse

	// tackle that is not a plain frigate
	22452: {ClassDestroyer, RoleTackle}, // Heretic
	22456: {ClassDestroyer, RoleTackle}, // Sabre
	22460: {ClassDestroyer, RoleTackle}, // Eris
	22464: {ClassDestroyer, RoleTackle}, // Flycatcher
	11995: {ClassCruiser, RoleTackle},   // Onyx
	12013: {ClassCruiser, RoleTackle},   // Broadsword
	12017: {ClassCruiser, RoleTackle},   // Devoter
	12021: {ClassCruiser, RoleTackle},   // Phobos

	// frigates flown for damage rather than tackle
	12032: {ClassFrigate, RoleDPS}, // Manticore
	12034: {ClassFrigate, RoleDPS}, // Hound
	12038: {ClassFrigate, RoleDPS}, // Purifier
	12044: {ClassFrigate, RoleDPS}, // Enyo

	// command ships
	22442: {ClassBattlecruiser, RoleCommand}, // Eos
	22444: {ClassBattlecruiser, RoleCommand}, // Sleipnir
	22446: {ClassBattlecruiser, RoleCommand}, // Vulture
	22448: {ClassBattlecruiser, RoleCommand}, // Absolution
	22466: {ClassBattlecruiser, RoleCommand}, // Astarte
	22468: {ClassBattlecruiser, RoleCommand}, // Claymore
	22470: {ClassBattlecruiser, RoleCommand}, // Nighthawk
	22474: {ClassBattlecruiser, RoleCommand}, // Damnation

	// marauders
	28659: {ClassBattleship, RoleDPS}, // Paladin
	28661: {ClassBattleship, RoleDPS}, // Kronos
	28665: {ClassBattleship, RoleDPS}, // Vargur
	28710: {ClassBattleship, RoleDPS}, // Golem

	// dreadnoughts
	19720: {ClassCapital, RoleDPS}, // Revelation
	19722: {ClassCapital, RoleDPS}, // Naglfar
	19724: {ClassCapital, RoleDPS}, // Moros
	19726: {ClassCapital, RoleDPS}, // Phoenix

	// carriers
	23757: {ClassCapital, RoleCapitalSupport}, // Archon
	23911: {ClassCapital, RoleCapitalSupport}, // Thanatos
	23915: {ClassCapital, RoleCapitalSupport}, // Chimera
	24483: {ClassCapital, RoleCapitalSupport}, // Nidhoggur

	// supercarriers and titans
	671:   {ClassSupercapital, RoleCapitalSupport}, // Erebus
	3764:  {ClassSupercapital, RoleCapitalSupport}, // Leviathan
	11567: {ClassSupercapital, RoleCapitalSupport}, // Avatar
	22852: {ClassSupercapital, RoleCapitalSupport}, // Hel
	23773: {ClassSupercapital, RoleCapitalSupport}, // Ragnarok
	23913: {ClassSupercapital, RoleCapitalSupport}, // Nyx
	23917: {ClassSupercapital, RoleCapitalSupport}, // Wyvern
	23919: {ClassSupercapital, RoleCapitalSupport}, // Aeon
}
