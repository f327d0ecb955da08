package ols

import (
	"math"
	"testing"

	"linmod/infra/errorx"
	"linmod/infra/errorx/errCode"

	"gonum.org/v1/gonum/mat"
)

// x3 = x1 + x2 精确线性组合: 必须恰好剔除一列, 降维后可解
func TestExactLinearCombinationDropped(t *testing.T) {
	n := 10
	rnd := lcg(7)
	matX := mat.NewDense(n, 4, nil)
	matY := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		x1 := rnd() * 5
		x2 := rnd() * 3
		matX.Set(i, 0, 1)
		matX.Set(i, 1, x1)
		matX.Set(i, 2, x2)
		matX.Set(i, 3, x1+x2)
		matY.SetVec(i, 1+x1-x2+rnd()*0.1)
	}

	reduced, kept, dropped := FilterCollinear(matX, 0)
	t.Log("kept:", kept, "dropped:", dropped)
	if len(dropped) != 1 {
		t.Fatalf("dropped = %v, want exactly one column", dropped)
	}
	if _, c := reduced.Dims(); c != 3 {
		t.Fatalf("reduced cols = %d, want 3", c)
	}
	if _, err := solveOLS(reduced, matY); err != nil {
		t.Fatalf("solver failed on reduced matrix: %v", err)
	}
}

// 虚拟变量陷阱: 截距 + 两个互补指示列, 恰好剔除一个指示列
func TestDummyTrap(t *testing.T) {
	n := 12
	rnd := lcg(11)
	matX := mat.NewDense(n, 3, nil)
	matY := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		d1 := float64(i % 2)
		matX.Set(i, 0, 1)
		matX.Set(i, 1, d1)
		matX.Set(i, 2, 1-d1)
		matY.SetVec(i, 2+d1+rnd())
	}

	_, kept, dropped := FilterCollinear(matX, 0)
	if len(dropped) != 1 {
		t.Fatalf("dropped = %v, want exactly one column", dropped)
	}
	if dropped[0] != 1 && dropped[0] != 2 {
		t.Fatalf("dropped = %v, want one of the indicator columns", dropped)
	}
	if len(kept) != 2 {
		t.Fatalf("kept = %v, want 2 columns", kept)
	}
}

// 满秩矩阵全保留, 且原样返回
func TestFullRankKeepsAll(t *testing.T) {
	matX, _ := noisyData(10)
	reduced, kept, dropped := FilterCollinear(matX, 0)
	if len(dropped) != 0 || len(kept) != 3 {
		t.Fatalf("kept=%v dropped=%v, want all kept", kept, dropped)
	}
	if reduced != matX {
		t.Fatal("no-drop path should return the input matrix unchanged")
	}
}

// FitNamed: 剔除列按名称写回Omitted, 系数与手工降维一致
func TestFitNamedReportsOmitted(t *testing.T) {
	n := 10
	rnd := lcg(3)
	matX := mat.NewDense(n, 3, nil)
	matY := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		x1 := rnd() * 5
		matX.Set(i, 0, 1)
		matX.Set(i, 1, x1)
		matX.Set(i, 2, 2*x1) // 与x1成比例
		matY.SetVec(i, 1+x1+rnd()*0.1)
	}

	res, err := FitNamed(matX, matY, []string{"const", "x1", "x1_dup"}, NonRobust())
	if err != nil {
		t.Fatal(err)
	}
	t.Log("VarNames:", res.VarNames, "Omitted:", res.Omitted)
	if len(res.Omitted) != 1 || res.Omitted[0] != "x1_dup" {
		t.Fatalf("Omitted = %v, want [x1_dup]", res.Omitted)
	}
	if len(res.Coeffs) != 2 {
		t.Fatalf("coeffs len = %d, want 2", len(res.Coeffs))
	}
	if math.Abs(res.Coeffs[1]-1) > 0.1 {
		t.Fatalf("slope = %v, want ~1", res.Coeffs[1])
	}
}

// 位置调用不做共线检查: 奇异矩阵直接报SINGULAR_MATRIX
func TestFitSkipsGuard(t *testing.T) {
	n := 8
	matX := mat.NewDense(n, 3, nil)
	matY := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		x1 := float64(i + 1)
		matX.Set(i, 0, 1)
		matX.Set(i, 1, x1)
		matX.Set(i, 2, 3*x1)
		matY.SetVec(i, x1)
	}

	_, err := Fit(matX, matY, NonRobust())
	if err == nil {
		t.Fatal("expected singular matrix error")
	}
	if !errorx.IsCode(err, errCode.SINGULAR_MATRIX) {
		t.Fatalf("code = %v, want SINGULAR_MATRIX", errorx.GetCode(err))
	}
}

// 病态输入(n<k)下QR分解失败: 守卫退化为全保留, 失败交给求解器
func TestGuardDegradesOnPathologicalInput(t *testing.T) {
	matX := mat.NewDense(2, 4, []float64{
		1, 2, 3, 4,
		5, 6, 7, 8,
	})

	reduced, kept, dropped := FilterCollinear(matX, 0)
	if len(kept) != 4 || len(dropped) != 0 {
		t.Fatalf("kept=%v dropped=%v, degrade path must keep everything", kept, dropped)
	}
	if reduced != matX {
		t.Fatal("degrade path should return the input matrix unchanged")
	}

	// FitNamed在同样输入上报求解器的自由度错误, 而不是panic
	matY := mat.NewVecDense(2, []float64{1, 2})
	_, err := FitNamed(matX, matY, nil, NonRobust())
	if err == nil {
		t.Fatal("expected degenerate df error")
	}
	if !errorx.IsCode(err, errCode.INVALID_VALUE) {
		t.Fatalf("code = %v, want INVALID_VALUE", errorx.GetCode(err))
	}
}

// 变量名数量与列数不一致
func TestFitNamedNameCountMismatch(t *testing.T) {
	matX, matY := noisyData(10)
	_, err := FitNamed(matX, matY, []string{"const", "x1"}, NonRobust())
	if err == nil || !errorx.IsCode(err, errCode.SHAPE_MISMATCH) {
		t.Fatalf("expected SHAPE_MISMATCH, got %v", err)
	}
}
