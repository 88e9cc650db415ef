package engine

import (
	"Leadline/internal/pkg/consts"
	"strings"
)

// TagClass 标签类别：温度与漏斗阶段各自互斥，一个线程每类最多一个生效
type TagClass string

const (
	ClassTemperature TagClass = "temperature"
	ClassPhase       TagClass = "phase"
	ClassNone        TagClass = ""
)

const (
	TempHot  = "hot"
	TempWarm = "warm"
	TempCold = "cold"

	PhaseNewLead     = "new_lead"
	PhaseInContact   = "in_contact"
	PhaseQualified   = "qualified"
	PhaseUnqualified = "unqualified"
	PhaseCallBooked  = "call_booked"
	PhaseWon         = "won"
	PhaseNoShow      = "no_show"
)

// TagPreset 规范标签缺行时自动建行用的预设
type TagPreset struct {
	Name   string
	Class  TagClass
	Color  string
	Icon   string
	Prompt string
}

var tagPresets = map[string]TagPreset{
	TempHot:  {Name: TempHot, Class: ClassTemperature, Color: "#E5484D", Icon: "flame", Prompt: "回复积极，近期有明确意向"},
	TempWarm: {Name: TempWarm, Class: ClassTemperature, Color: "#F5A524", Icon: "sun", Prompt: "有互动但尚未表达意向"},
	TempCold: {Name: TempCold, Class: ClassTemperature, Color: "#3E63DD", Icon: "snowflake", Prompt: "长期未回复或明确拒绝"},

	PhaseNewLead:     {Name: PhaseNewLead, Class: ClassPhase, Color: "#8E8E93", Icon: "sparkles", Prompt: "新线索，尚未建立联系"},
	PhaseInContact:   {Name: PhaseInContact, Class: ClassPhase, Color: "#30A46C", Icon: "chat", Prompt: "已建立联系，沟通进行中"},
	PhaseQualified:   {Name: PhaseQualified, Class: ClassPhase, Color: "#0091FF", Icon: "check-circle", Prompt: "符合成交条件"},
	PhaseUnqualified: {Name: PhaseUnqualified, Class: ClassPhase, Color: "#687076", Icon: "x-circle", Prompt: "不符合成交条件"},
	PhaseCallBooked:  {Name: PhaseCallBooked, Class: ClassPhase, Color: "#6E56CF", Icon: "calendar", Prompt: "已约通话"},
	PhaseWon:         {Name: PhaseWon, Class: ClassPhase, Color: "#FFB224", Icon: "trophy", Prompt: "已成交"},
	PhaseNoShow:      {Name: PhaseNoShow, Class: ClassPhase, Color: "#E54666", Icon: "user-x", Prompt: "约了通话未出席"},
}

// 同义词表：历史上人工建过的别名统一折算到规范名
var tagSynonyms = map[string]string{
	"booked call":  PhaseCallBooked,
	"call booked":  PhaseCallBooked,
	"booked":       PhaseCallBooked,
	"new lead":     PhaseNewLead,
	"new":          PhaseNewLead,
	"in contact":   PhaseInContact,
	"contacted":    PhaseInContact,
	"no show":      PhaseNoShow,
	"noshow":       PhaseNoShow,
	"disqualified": PhaseUnqualified,
	"closed won":   PhaseWon,
}

// normalizeTagName 大小写与空白规范化：折叠连续空白，下划线视同空格
func normalizeTagName(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '_' || r == '-'
	})
	return strings.Join(fields, " ")
}

// Canonicalize 把任意写法的标签名折算为规范名与类别
// 非分类标签（普通自定义标签）返回原名与 ClassNone
func Canonicalize(name string) (string, TagClass) {
	norm := normalizeTagName(name)
	if canonical, ok := tagSynonyms[norm]; ok {
		return canonical, tagPresets[canonical].Class
	}
	joined := strings.ReplaceAll(norm, " ", "_")
	if preset, ok := tagPresets[joined]; ok {
		return preset.Name, preset.Class
	}
	return name, ClassNone
}

// PresetFor 规范名对应的预设，仅分类标签存在
func PresetFor(canonical string) (TagPreset, bool) {
	preset, ok := tagPresets[canonical]
	return preset, ok
}

// PhaseToLeadStatus 阶段分类到遗留 leadStatus 镜像字段的映射
// 两套表示必须在同一次变更里一起落库
func PhaseToLeadStatus(phase string) string {
	switch phase {
	case PhaseQualified, PhaseWon:
		return consts.LeadStatusQualified
	case PhaseUnqualified:
		return consts.LeadStatusDisqualified
	default:
		return consts.LeadStatusOpen
	}
}
