package analyses

import (
	"hookstat/src/classify"
	"hookstat/src/contracts"
	"hookstat/src/dispatch"
	"hookstat/src/report"
)

// ExeStatName is the name of the execution statistics analysis.
const ExeStatName = "ExeStat"

// exeStatKinds are the hooks that count as executing a site. Pre-hooks are
// skipped so one operation is not counted twice.
var exeStatKinds = []contracts.EventKind{
	contracts.KindInvokeFun,
	contracts.KindLiteral,
	contracts.KindForInObject,
	contracts.KindDeclare,
	contracts.KindGetField,
	contracts.KindPutField,
	contracts.KindRead,
	contracts.KindWrite,
	contracts.KindFunctionEnter,
	contracts.KindFunctionExit,
	contracts.KindBinary,
	contracts.KindUnary,
	contracts.KindConditional,
	contracts.KindInstrumentCode,
}

// ExeStat counts how often each site executed and reports the whole table,
// grouped by file, as a single summary finding.
func ExeStat() dispatch.Analysis {
	reg := classify.NewRegistry()
	site := classify.SiteKey(ExeStatName, "")
	for _, k := range exeStatKinds {
		reg.On(k, site)
	}

	return dispatch.Analysis{
		Name:        ExeStatName,
		Classifiers: reg,
		Report:      report.Config{Mode: report.ModeDump},
	}
}
