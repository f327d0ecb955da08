package ols

import "fmt"

// 协方差估计策略, 闭集: 所有分支处都做穷举switch
type CovKind int

const (
	COV_NONROBUST      CovKind = iota // 经典OLS协方差
	COV_HC1                           // White异方差稳健 + n/(n-k)修正
	COV_HC2                           // 杠杆修正 u²/(1-h)
	COV_HC3                           // jackknife u²/(1-h)²
	COV_HC4                           // Cribari-Neto u²/(1-h)^δ
	COV_NEWEY_WEST                    // HAC, Bartlett核
	COV_CLUSTER                       // 一维聚类稳健
	COV_TWOWAY_CLUSTER                // 二维聚类(Cameron-Gelbach-Miller)
)

// CovType 携带策略及其参数, 构造后不可变, 原样写回FitResult
type CovType struct {
	Kind      CovKind
	Lags      int   // NeweyWest滞后阶数 L >= 0
	Clusters  []int // 一维聚类标签, 长度必须等于样本数
	Clusters2 []int // 二维聚类的第二维标签
}

func NonRobust() CovType { return CovType{Kind: COV_NONROBUST} }
func HC1() CovType       { return CovType{Kind: COV_HC1} }
func HC2() CovType       { return CovType{Kind: COV_HC2} }
func HC3() CovType       { return CovType{Kind: COV_HC3} }
func HC4() CovType       { return CovType{Kind: COV_HC4} }

func NeweyWest(lags int) CovType {
	return CovType{Kind: COV_NEWEY_WEST, Lags: lags}
}

func Clustered(ids []int) CovType {
	return CovType{Kind: COV_CLUSTER, Clusters: ids}
}

func TwoWayClustered(ids1, ids2 []int) CovType {
	return CovType{Kind: COV_TWOWAY_CLUSTER, Clusters: ids1, Clusters2: ids2}
}

func (c CovType) String() string {
	switch c.Kind {
	case COV_NONROBUST:
		return "Non-Robust"
	case COV_HC1:
		return "Robust (HC1)"
	case COV_HC2:
		return "Robust (HC2)"
	case COV_HC3:
		return "Robust (HC3)"
	case COV_HC4:
		return "Robust (HC4)"
	case COV_NEWEY_WEST:
		return fmt.Sprintf("HAC (Newey-West, L=%d)", c.Lags)
	case COV_CLUSTER:
		return fmt.Sprintf("Clustered (%d clusters)", countClusters(c.Clusters))
	case COV_TWOWAY_CLUSTER:
		return fmt.Sprintf("Two-Way Clustered (%dx%d)",
			countClusters(c.Clusters), countClusters(c.Clusters2))
	default:
		return "UNKNOWN"
	}
}

func countClusters(ids []int) int {
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return len(seen)
}

// 推断分布: t分布(小样本默认) or 标准正态(渐近)
// 切换只影响p值与置信区间, 不触碰系数和协方差
type InferMode int

const (
	INFER_T      InferMode = iota // Student-t, 自由度n-k
	INFER_NORMAL                  // 标准正态
)

func (m InferMode) String() string {
	switch m {
	case INFER_T:
		return "t"
	case INFER_NORMAL:
		return "normal"
	default:
		return "UNKNOWN"
	}
}
