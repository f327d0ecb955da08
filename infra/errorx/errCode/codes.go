package errCode

// 统一错误码, 与错误分类一一对应
type Code int

const (
	EMPTY_VALUE      Code = iota + 1000 // 输入为空
	INVALID_VALUE                       // 非法取值(自由度退化等)
	SHAPE_MISMATCH                      // 维度不匹配
	SINGULAR_MATRIX                     // 矩阵奇异不可逆
	DIST_INIT_FAILED                    // 分布初始化失败
)

func (c Code) String() string {
	switch c {
	case EMPTY_VALUE:
		return "EMPTY_VALUE"
	case INVALID_VALUE:
		return "INVALID_VALUE"
	case SHAPE_MISMATCH:
		return "SHAPE_MISMATCH"
	case SINGULAR_MATRIX:
		return "SINGULAR_MATRIX"
	case DIST_INIT_FAILED:
		return "DIST_INIT_FAILED"
	default:
		return "UNKNOWN"
	}
}
